//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binary = "copyedit"
	pkg    = "./cmd/copyedit"
)

// Default target when mage runs without arguments.
var Default = Build

// Build compiles the copyedit binary into bin/.
func Build() error {
	mg.Deps(Vet)
	if err := os.MkdirAll("bin", 0o755); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", "bin/"+binary, pkg)
}

// Test runs the test suite with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Vet runs go vet over every package.
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Install installs copyedit into GOBIN.
func Install() error {
	mg.Deps(Test)
	return sh.RunV("go", "install", pkg)
}

// Clean removes build output.
func Clean() error {
	fmt.Println("removing bin/")
	return sh.Rm("bin")
}
