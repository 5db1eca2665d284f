package prompts

import (
	"strings"
	"testing"
)

func TestBuildGenerate(t *testing.T) {
	data := GenerateData{
		Content:             "The mitochondria is the powerhouse of the cell.",
		Count:               7,
		Types:               "SINGLE_CHOICE, FREE_TEXT",
		IncludeExplanations: true,
	}

	for _, d := range []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyMixed} {
		t.Run(string(d), func(t *testing.T) {
			prompt, err := BuildGenerate(d, data)
			if err != nil {
				t.Fatalf("BuildGenerate(%s): %v", d, err)
			}
			if !strings.Contains(prompt, data.Content) {
				t.Error("prompt should contain the source content")
			}
			if !strings.Contains(prompt, "7") {
				t.Error("prompt should contain the question count")
			}
			if !strings.Contains(prompt, "SINGLE_CHOICE, FREE_TEXT") {
				t.Error("prompt should list allowed types")
			}
			if !strings.Contains(prompt, `"explanation"`) {
				t.Error("prompt should describe the explanation field")
			}
		})
	}

	if _, err := BuildGenerate("brutal", data); err == nil {
		t.Error("expected error for unknown difficulty")
	}
}

func TestBuildGenerateExplanationsOff(t *testing.T) {
	prompt, err := BuildGenerate(DifficultyEasy, GenerateData{
		Content: "text", Count: 3, Types: "SINGLE_CHOICE",
	})
	if err != nil {
		t.Fatalf("BuildGenerate: %v", err)
	}
	if !strings.Contains(prompt, `Leave "explanation" empty`) {
		t.Error("prompt should tell the model to skip explanations")
	}
}

func TestBuildGenerateTruncatesContent(t *testing.T) {
	long := strings.Repeat("x", 20000)
	prompt, err := BuildGenerate(DifficultyMixed, GenerateData{Content: long, Count: 5, Types: "SINGLE_CHOICE"})
	if err != nil {
		t.Fatalf("BuildGenerate: %v", err)
	}
	if !strings.Contains(prompt, "[Source truncated due to length]") {
		t.Error("oversized content should be truncated with a marker")
	}
	if len(prompt) > 12000 {
		t.Errorf("prompt unexpectedly large: %d", len(prompt))
	}
}

func TestBuildExplain(t *testing.T) {
	prompt, err := BuildExplain(ExplainData{
		Prompt:     "What color is the sky?",
		Options:    []string{"red", "blue"},
		Correct:    "blue",
		UserAnswer: "red",
	})
	if err != nil {
		t.Fatalf("BuildExplain: %v", err)
	}
	for _, want := range []string{"What color is the sky?", "blue", "THE LEARNER ANSWERED: red"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	noAnswer, err := BuildExplain(ExplainData{Prompt: "Q", Correct: "A"})
	if err != nil {
		t.Fatalf("BuildExplain: %v", err)
	}
	if strings.Contains(noAnswer, "THE LEARNER ANSWERED") {
		t.Error("learner answer section should be omitted when absent")
	}
}

func TestBuildGeneral(t *testing.T) {
	prompt, err := BuildGeneral(GeneralData{Topic: "photosynthesis", Context: "plants make sugar"})
	if err != nil {
		t.Fatalf("BuildGeneral: %v", err)
	}
	if !strings.Contains(prompt, "photosynthesis") || !strings.Contains(prompt, "plants make sugar") {
		t.Error("prompt should carry topic and context")
	}
}
