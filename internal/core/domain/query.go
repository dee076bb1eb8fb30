package domain

// QueryRequest is the inbound query envelope delivered by a front door
// (HTTP, MCP, bots).
type QueryRequest struct {
	Channel string `json:"channel"`
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
}

// Query is the normalized form of a user message, immutable after
// normalization and scoped to a single pipeline run.
type Query struct {
	Raw        string
	Normalized string
	// Boosts maps a page type to a multiplicative score factor applied
	// after rank fusion.
	Boosts map[string]float64
}

// SparseVector holds parallel index/value lists of lexical term weights.
// Invariant: len(Indices) == len(Values). The zero value means "no sparse
// representation" and disables the sparse retrieval channel.
type SparseVector struct {
	Indices []uint32  `json:"indices"`
	Values  []float32 `json:"values"`
}

func (v SparseVector) IsEmpty() bool {
	return len(v.Indices) == 0 || len(v.Values) == 0
}

// PassagePayload is the metadata stored alongside each indexed chunk.
type PassagePayload struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	Text     string `json:"text"`
	PageType string `json:"page_type"`
	Source   string `json:"source"`
	Language string `json:"language"`
	Hash     string `json:"hash"`
}

// Candidate is one retrieved chunk moving through the pipeline. Score is
// the raw similarity score of the channel that produced it; RRFScore,
// BoostedScore and RerankScore are filled in by later stages.
type Candidate struct {
	ID           string
	Score        float64
	Payload      PassagePayload
	RRFScore     float64
	BoostedScore float64
	RerankScore  float64
}

// Source is one supporting document reference in the final answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// AnswerResult is the response envelope of one pipeline run. It is built
// exactly once, either at the end of the pipeline or at the point of an
// unrecoverable failure.
type AnswerResult struct {
	Answer         string    `json:"answer,omitempty"`
	Sources        []Source  `json:"sources"`
	Channel        string    `json:"channel"`
	ChatID         string    `json:"chat_id"`
	ProcessingTime float64   `json:"processing_time,omitempty"`
	Error          ErrorKind `json:"error,omitempty"`
	Message        string    `json:"message,omitempty"`
}

// ErrorKind identifies which pipeline stage failed fatally.
type ErrorKind string

const (
	ErrorQueryProcessing ErrorKind = "query_processing_failed"
	ErrorEmbedding       ErrorKind = "embedding_failed"
	ErrorSearch          ErrorKind = "search_failed"
	ErrorNoResults       ErrorKind = "no_results"
	ErrorLLM             ErrorKind = "llm_failed"
	ErrorInternal        ErrorKind = "internal_error"
)

// UserMessage returns the user-facing text shown for a fatal pipeline
// failure. The wording is intentionally non-technical.
func (k ErrorKind) UserMessage() string {
	switch k {
	case ErrorQueryProcessing:
		return "Ошибка обработки запроса. Попробуйте переформулировать вопрос."
	case ErrorEmbedding:
		return "Сервис эмбеддингов временно недоступен. Попробуйте позже."
	case ErrorSearch:
		return "Ошибка поиска в базе знаний. Попробуйте позже."
	case ErrorNoResults:
		return "К сожалению, не удалось найти релевантную информацию по вашему запросу. Попробуйте переформулировать вопрос или использовать другие ключевые слова."
	case ErrorLLM:
		return "Сервис генерации ответов временно недоступен. Попробуйте позже."
	default:
		return "Произошла внутренняя ошибка. Попробуйте позже или обратитесь в поддержку."
	}
}

// FailedAnswer builds the error envelope for a fatal pipeline failure.
func FailedAnswer(kind ErrorKind, req QueryRequest) *AnswerResult {
	return &AnswerResult{
		Sources: []Source{},
		Channel: req.Channel,
		ChatID:  req.ChatID,
		Error:   kind,
		Message: kind.UserMessage(),
	}
}
