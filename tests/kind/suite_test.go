//go:build kind

package kind

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

var fw *Framework

func TestMain(m *testing.M) {
	fw = NewFramework()
	if err := fw.Setup(); err != nil {
		fw.Teardown()
		if errors.Is(err, errPrerequisite) {
			fmt.Println("SKIP:", err)
			os.Exit(0)
		}
		fmt.Printf("Setup failed: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	fw.Teardown()
	os.Exit(code)
}
