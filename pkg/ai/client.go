package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"dprcalc/pkg/config"
	"dprcalc/pkg/dpr"
)

var ErrNoAPIKey = errors.New("OPENAI_API_KEY is not set")

const advisorPrompt = "You are a D&D 5e rules assistant. You are given the exact expected " +
	"damage-per-round figures for an attack routine. Explain in at most four short sentences " +
	"what the numbers mean for the player and how much advantage or disadvantage matters. " +
	"Never recompute or change the figures."

// Client 封装 OpenAI 客户端
type Client struct {
	api   *openai.Client
	model string
}

// NewClient 初始化 AI 客户端
func NewClient(cfg config.AIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL

	logrus.Infof("AI Client initialized with Model: %s, BaseURL: %s", cfg.Model, cfg.BaseURL)
	return &Client{
		api:   openai.NewClientWithConfig(clientCfg),
		model: cfg.Model,
	}, nil
}

// ChatRequest 发送对话请求
func (c *Client) ChatRequest(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := c.api.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:    c.model,
			Messages: messages,
		},
	)
	if err != nil {
		logrus.Errorf("ChatCompletion error: %v", err)
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Explain asks the model to put a report into words.
func (c *Client) Explain(ctx context.Context, r dpr.Report) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: advisorPrompt},
		{Role: openai.ChatMessageRoleUser, Content: Describe(r)},
	}
	return c.ChatRequest(ctx, messages)
}

// Describe renders the facts handed to the model.
func Describe(r dpr.Report) string {
	p := r.Profile
	b := p.Breakdown()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Attack bonus %+d against AC %d, %d attack(s) per round, damage %s.\n",
		p.AttackBonus, p.TargetDefense, p.Attacks, b.Expression)
	fmt.Fprintf(&sb, "Average damage %.2f on a hit, %.2f on a critical hit.\n", b.Average, b.CritAvg)
	fmt.Fprintf(&sb, "Natural roll needed: %d. Selected mode: %s.\n", b.Needed, p.Mode)
	sb.WriteString(r.String())
	return sb.String()
}
