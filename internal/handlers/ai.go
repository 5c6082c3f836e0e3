package handlers

import (
	"net/http"
	"strings"

	"github.com/cbr-records/apiserver/config"
	"github.com/go-chi/chi/v5"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const maxChatMessages = 50

// AIHandler proxies chat and cover-art generation to the OpenAI API so
// the key never reaches the browser.
type AIHandler struct {
	client     openai.Client
	chatModel  string
	imageModel string
}

func NewAIHandler(cfg config.OpenAIConfig) *AIHandler {
	return &AIHandler{
		client:     openai.NewClient(option.WithAPIKey(cfg.APIKey)),
		chatModel:  cfg.ChatModel,
		imageModel: cfg.ImageModel,
	}
}

// AIRouter registers the generative endpoints.
func AIRouter(r chi.Router, handler *AIHandler) {
	r.Post("/chat", handler.Chat)
	r.Post("/generate-cover", handler.GenerateCover)
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

type ChatResponse struct {
	Message string `json:"message"`
	Text    string `json:"text"`
}

type GenerateCoverRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateCoverResponse struct {
	Message  string `json:"message"`
	Image    string `json:"image"`
	MimeType string `json:"mime_type"`
}

// Chat forwards a conversation transcript and returns the assistant's reply.
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	if len(req.Messages) > maxChatMessages {
		writeError(w, http.StatusBadRequest, "too many messages")
		return
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, msg := range req.Messages {
		content := strings.TrimSpace(msg.Content)
		if content == "" {
			writeError(w, http.StatusBadRequest, "message content is required")
			return
		}
		switch msg.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(content))
		case "user":
			messages = append(messages, openai.UserMessage(content))
		default:
			writeError(w, http.StatusBadRequest, "unknown message role")
			return
		}
	}

	completion, err := h.client.Chat.Completions.New(r.Context(), openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(h.chatModel),
		Messages: messages,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "chat request failed")
		return
	}
	if len(completion.Choices) == 0 {
		writeError(w, http.StatusBadGateway, "chat request returned no reply")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		Message: "chat reply generated",
		Text:    completion.Choices[0].Message.Content,
	})
}

// GenerateCover produces one cover image for the prompt and returns it
// base64-encoded.
func (h *AIHandler) GenerateCover(w http.ResponseWriter, r *http.Request) {
	var req GenerateCoverRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	image, err := h.client.Images.Generate(r.Context(), openai.ImageGenerateParams{
		Model:          openai.ImageModel(h.imageModel),
		Prompt:         req.Prompt,
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize1024x1024,
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, "image generation failed")
		return
	}
	if len(image.Data) == 0 || image.Data[0].B64JSON == "" {
		writeError(w, http.StatusBadGateway, "image generation returned no data")
		return
	}

	writeJSON(w, http.StatusOK, GenerateCoverResponse{
		Message:  "cover generated",
		Image:    image.Data[0].B64JSON,
		MimeType: "image/png",
	})
}
