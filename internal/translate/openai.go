package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const systemPrompt = "You are a translation engine. Translate the user's text from %s to %s. " +
	"Reply with the translation only, without quotes or commentary."

// OpenAI translates through a chat-completion model. Any OpenAI-compatible
// endpoint works through baseURL.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a chat-completion translator. Retries are left to Async.
func NewOpenAI(apiKey string, baseURL string, model string) (*OpenAI, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai api key is empty")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("openai model is empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(baseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(base, "/")+"/"))
	}
	client := openai.NewClient(opts...)
	return &OpenAI{client: &client, model: model}, nil
}

// Translate asks the model for a translation of req.Text.
func (o *OpenAI) Translate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: o.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, languageName(req.Source), languageName(req.Target))),
			openai.UserMessage(req.Text),
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai chat: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

var languageNames = map[string]string{
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ja": "Japanese",
	"pt": "Portuguese",
}

// languageName expands common ISO 639-1 codes; anything else passes through.
func languageName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return "the detected language"
	}
	base := strings.ToLower(strings.SplitN(strings.ReplaceAll(code, "_", "-"), "-", 2)[0])
	if name, ok := languageNames[base]; ok {
		return name
	}
	return code
}
