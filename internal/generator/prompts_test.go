package generator

import (
	"strings"
	"testing"

	"github.com/memorymate/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	pc, err := NewPromptCatalog()
	require.NoError(t, err)

	for d := range models.ValidDifficulties {
		prompt := pc.SystemPrompt(d, nil)
		assert.Contains(t, prompt, string(d)+" difficulty", "difficulty %s", d)
		assert.Contains(t, prompt, "diverse range")
		assert.Contains(t, prompt, "unique and different")
		assert.Contains(t, prompt, `"correctAnswer"`)
		assert.Contains(t, prompt, "exactly 4 distinct")
		assert.NotContains(t, prompt, "{{")
	}
}

func TestSystemPrompt_Topics(t *testing.T) {
	pc, err := NewPromptCatalog()
	require.NoError(t, err)

	prompt := pc.SystemPrompt(models.DifficultyHard, []string{"beach", "family"})
	assert.Contains(t, prompt, "one of these topics if possible: beach, family.")
	assert.False(t, strings.Contains(prompt, "diverse range"))
}

func TestUserPrompt(t *testing.T) {
	pc, err := NewPromptCatalog()
	require.NoError(t, err)

	assert.Equal(t, "Generate question #1 based on this image.", pc.UserPrompt(0))
	assert.Equal(t, "Generate question #7 based on this image.", pc.UserPrompt(6))
}

func TestParsePromptCatalog_MissingDifficulty(t *testing.T) {
	data := []byte(`
system: "s"
user: "u"
format: "f"
difficulty:
  easy: "e"
`)
	_, err := ParsePromptCatalog(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing difficulty")
}
