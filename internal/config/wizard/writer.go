package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/k8stack/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteStack writes the stack to a YAML file with a descriptive header.
func WriteStack(s *config.Stack, outputPath string) error {
	yamlBytes, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal stack: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(s, outputPath))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// generateHeader creates the YAML file header comment.
func generateHeader(s *config.Stack, outputPath string) string {
	var secrets string
	if s.Secrets.File == "" {
		secrets = "\n# Secrets are read from K8STACK_SECRET_<COMPONENT>_<SETTING> variables."
	} else {
		secrets = fmt.Sprintf("\n# Secrets are read from %s, decrypted with %s.", s.Secrets.File, s.Secrets.Identity)
	}
	return fmt.Sprintf(`# k8stack stack file
# Generated by: k8stack init
# Generated at: %s
#
# Component settings go under args, or under config.<component>.%s
#
# Usage:
#   k8stack plan -f %s
#   k8stack apply -f %s --kubeconfig ~/.kube/config
`, time.Now().Format(time.RFC3339), secrets, outputPath, outputPath)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing file.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

// defaultConfirmOverwrite is the default implementation that prompts via stdin.
func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
