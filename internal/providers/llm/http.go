package llm

import (
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// HTTPClient interface for HTTP requests (enables testing)
type HTTPClient = openai.HTTPDoer

var _ HTTPClient = (*http.Client)(nil)
