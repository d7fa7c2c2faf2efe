package cli

// Test Plan for CLI Commands:
// - runIndex indexes a temp project and records the codebase
// - runStatus lists the indexed codebase without error
// - runSearch finds entities indexed by runIndex
// - runComplexity rejects --entity and --file used together or not at all

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescope/codescope/internal/storage"
)

const cliTestSource = `package sample

import "fmt"

// Greet says hello.
func Greet(name string) string {
	if name == "" {
		name = "world"
	}
	return fmt.Sprintf("hello %s", name)
}
`

// setupTestProject writes a tiny Go project and points the global flags at it.
func setupTestProject(t *testing.T) string {
	t.Helper()

	projectDir := t.TempDir()
	err := os.WriteFile(filepath.Join(projectDir, "main.go"), []byte(cliTestSource), 0644)
	require.NoError(t, err)

	prevRoot, prevQuiet := rootDirFlag, quietFlag
	rootDirFlag = projectDir
	quietFlag = true
	t.Cleanup(func() {
		rootDirFlag = prevRoot
		quietFlag = prevQuiet
	})
	return projectDir
}

func TestIndexStatusSearch(t *testing.T) {
	setupTestProject(t)

	require.NoError(t, runIndex(indexCmd, nil))

	// The index database lands under the project root.
	proj, err := openProject()
	require.NoError(t, err)
	defer proj.Close()

	cb, err := proj.requireCodebase()
	require.NoError(t, err)
	assert.Equal(t, storage.StatusIndexed, cb.Status)

	require.NoError(t, runStatus(statusCmd, nil))
	require.NoError(t, runSearch(searchCmd, []string{"Greet"}))
}

func TestComplexityFlagValidation(t *testing.T) {
	prevEntity, prevFile := complexityEntity, complexityFile
	t.Cleanup(func() {
		complexityEntity = prevEntity
		complexityFile = prevFile
	})

	complexityEntity = ""
	complexityFile = ""
	err := runComplexity(complexityCmd, nil)
	assert.ErrorContains(t, err, "exactly one of")

	complexityEntity = "main.go::Greet::6"
	complexityFile = "main.go"
	err = runComplexity(complexityCmd, nil)
	assert.ErrorContains(t, err, "exactly one of")
}
