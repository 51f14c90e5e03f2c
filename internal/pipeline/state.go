// internal/pipeline/state.go
package pipeline

// State is where a submission is in the pipeline.
type State string

const (
	StateReceived       State = "RECEIVED"
	StateInputPersisted State = "INPUT_PERSISTED"
	StateDeckUploaded   State = "DECK_UPLOADED"
	StateDeckExtracted  State = "DECK_EXTRACTED"
	StateDeckSummarized State = "DECK_SUMMARIZED"
	StateScored         State = "SCORED"
	StateResponded      State = "RESPONDED"
	StateNotified       State = "NOTIFIED"
	StateError          State = "ERROR"
)

// Stage names used for spans and duration metrics.
const (
	stageValidate      = "validate"
	stagePersistInput  = "persist_input"
	stageUploadDeck    = "upload_deck"
	stageExtractDeck   = "extract_deck"
	stageSummarizeDeck = "summarize_deck"
	stageScore         = "score"
	stagePersistScore  = "persist_score"
	stageNotify        = "notify"
)
