package tts

import "fmt"

// Stage names used to tag errors with their origin.
const (
	StageLinguistic = "linguistic"
	StageEncoder    = "contextual-encoder"
	StageStyle      = "style-mixer"
	StageAcoustic   = "acoustic-model"
	StageVocoder    = "vocoder"
)

// StageError wraps a stage failure with the stage that produced it,
// preserving the original cause for errors.Is/As classification.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
