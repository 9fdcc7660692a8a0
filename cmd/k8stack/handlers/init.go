package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/k8stack/internal/config"
	"github.com/imamik/k8stack/internal/config/wizard"
)

// Factory function variables for init - can be replaced in tests.
var (
	wizardFileExists       = wizard.FileExists
	wizardConfirmOverwrite = wizard.ConfirmOverwrite
	wizardRunWizard        = wizard.RunWizard
	wizardBuildStack       = wizard.BuildStack
	wizardWriteStack       = wizard.WriteStack
)

// Init runs the stack wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string, advanced bool) error {
	if wizardFileExists(outputPath) {
		ok, err := wizardConfirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	printWelcome(advanced)

	result, err := wizardRunWizard(ctx, advanced)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	stack, err := wizardBuildStack(result)
	if err != nil {
		return fmt.Errorf("invalid stack: %w", err)
	}

	if err := wizardWriteStack(stack, outputPath); err != nil {
		return fmt.Errorf("failed to write stack: %w", err)
	}

	printInitSuccess(outputPath, stack)
	return nil
}

// printWelcome prints the welcome message.
func printWelcome(advanced bool) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "k8stack - Kubernetes component stacks")
	fmt.Fprintln(stdout, "=====================================")
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "This wizard creates a stack file from the component catalog.")
	if advanced {
		fmt.Fprintln(stdout, "Running in advanced mode: fetch settings will be asked as well.")
	}
	fmt.Fprintln(stdout)
}

// printInitSuccess prints the success message with summary and next steps.
func printInitSuccess(outputPath string, s *config.Stack) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Stack saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File:    %s\n", outputPath)
	fmt.Fprintf(stdout, "  Project: %s\n", s.Project)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Components")
	fmt.Fprintln(stdout, "----------")
	for _, c := range s.Components {
		line := fmt.Sprintf("  - %s (%s)", c.Name, c.Type)
		if len(c.DependsOn) > 0 {
			line += fmt.Sprintf(" after %v", c.DependsOn)
		}
		fmt.Fprintln(stdout, line)
	}
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "Next Steps")
	fmt.Fprintln(stdout, "----------")
	fmt.Fprintf(stdout, "  1. Add component settings to %s\n", outputPath)
	if s.Secrets.File == "" {
		fmt.Fprintln(stdout, "  2. Export secrets as K8STACK_SECRET_<COMPONENT>_<SETTING>")
	} else {
		fmt.Fprintf(stdout, "  2. Store secrets in %s\n", s.Secrets.File)
	}
	fmt.Fprintln(stdout, "  3. Review the plan:")
	fmt.Fprintf(stdout, "     k8stack plan -f %s\n", outputPath)
	fmt.Fprintln(stdout)
}
