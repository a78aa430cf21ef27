package generate

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPromptManager_GetSplitterPrompt(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "prompts_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	files := map[string]string{
		"identity.md":    "Identity Content",
		"constraints.md": "Constraints Content",
		"examples.md":    "Examples Content",
		"user.md":        "User Content",
		"extra.md":       "Extra Content",
		"refine.md":      "Refine Content",
	}

	for name, content := range files {
		err := ioutil.WriteFile(filepath.Join(tempDir, name), []byte(content), 0644)
		if err != nil {
			t.Fatal(err)
		}
	}

	pm := NewPromptManager(tempDir)
	prompt, err := pm.GetSplitterPrompt()
	if err != nil {
		t.Fatal(err)
	}

	expectedParts := []string{
		"Identity Content",
		"Constraints Content",
		"Examples Content",
		"User Content",
		"Extra Content",
	}

	for _, part := range expectedParts {
		if !strings.Contains(prompt, part) {
			t.Errorf("Prompt missing expected part: %s", part)
		}
	}

	if strings.Contains(prompt, "Refine Content") {
		t.Error("Splitter prompt must not include refine.md")
	}

	// Verify order
	if strings.Index(prompt, "Identity Content") >= strings.Index(prompt, "Constraints Content") {
		t.Error("Identity should be before Constraints")
	}
	if strings.Index(prompt, "Constraints Content") >= strings.Index(prompt, "Examples Content") {
		t.Error("Constraints should be before Examples")
	}
	if strings.Index(prompt, "Examples Content") >= strings.Index(prompt, "User Content") {
		t.Error("Examples should be before User")
	}
}

func TestPromptManager_GetRefinePrompt(t *testing.T) {
	tempDir, err := ioutil.TempDir("", "prompts_test")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(tempDir)

	if err := ioutil.WriteFile(filepath.Join(tempDir, "refine.md"), []byte("Refine Content"), 0644); err != nil {
		t.Fatal(err)
	}

	pm := NewPromptManager(tempDir)
	prompt, err := pm.GetRefinePrompt()
	if err != nil {
		t.Fatal(err)
	}
	if prompt != "Refine Content" {
		t.Errorf("unexpected refine prompt: %q", prompt)
	}
}
