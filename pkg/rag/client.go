// Package rag provides a client for the external retrieval-augmented question answering service.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fsdm-chat-go/internal/config"
	"fsdm-chat-go/pkg/answer"
	"fsdm-chat-go/pkg/log"
)

// Client defines the interface for the question answering client.
type Client interface {
	// Query 发送问题并返回服务端的结构化回答；非 2xx、网络错误、响应格式错误都会返回 error。
	Query(ctx context.Context, question string) (*QueryResponse, error)
	// GenerateBotResponse 返回可直接展示的回答文本，失败时回退到预设回复，永不返回错误。
	GenerateBotResponse(ctx context.Context, question string) string
	// TestConnection 用探测问题请求一次服务，仅当返回 2xx 时为 true。
	TestConnection(ctx context.Context) bool
}

type httpClient struct {
	cfg    config.RAGConfig
	client *http.Client
}

// NewClient creates a new question answering client from the config.
func NewClient(cfg config.RAGConfig) Client {
	return NewClientWithHTTP(cfg, &http.Client{Timeout: cfg.Timeout})
}

// NewClientWithHTTP 使用调用方提供的 http.Client，便于测试注入。
func NewClientWithHTTP(cfg config.RAGConfig, hc *http.Client) Client {
	if cfg.ProbeQuestion == "" {
		cfg.ProbeQuestion = "test"
	}
	return &httpClient{cfg: cfg, client: hc}
}

type queryRequest struct {
	Question string `json:"question"`
}

// QueryResponse 是问答服务的响应体。
type QueryResponse struct {
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Query calls the /query endpoint with a single question.
func (c *httpClient) Query(ctx context.Context, question string) (*QueryResponse, error) {
	resp, err := c.post(ctx, question)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rag api returned non-2xx status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	var out QueryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode rag response: %w", err)
	}
	return &out, nil
}

func (c *httpClient) post(ctx context.Context, question string) (*http.Response, error) {
	reqBytes, err := json.Marshal(queryRequest{Question: question})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rag request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.QueryURL(), bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create rag request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	log.Debugf("[RAGClient] POST %s", c.cfg.QueryURL())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call rag api: %w", err)
	}
	return resp, nil
}

// GenerateBotResponse 调用问答服务并把结果编码为带来源与置信度标记的文本。
func (c *httpClient) GenerateBotResponse(ctx context.Context, question string) string {
	start := time.Now()
	log.Infof("[RAGClient] 发送问题, len: %d", len(question))

	resp, err := c.Query(ctx, question)
	if err != nil {
		log.Errorf("[RAGClient] 问答服务调用失败，使用预设回复, error: %v", err)
		return Fallback(question)
	}

	log.Infow("[RAGClient] 收到回答",
		"latency", time.Since(start).String(),
		"answerLen", len(resp.Answer),
		"sources", len(resp.Sources),
		"hasConfidence", resp.Confidence != nil,
	)
	return answer.Format(resp.Answer, resp.Sources, resp.Confidence)
}

// TestConnection probes the endpoint; network failures yield false.
func (c *httpClient) TestConnection(ctx context.Context) bool {
	resp, err := c.post(ctx, c.cfg.ProbeQuestion)
	if err != nil {
		log.Warnf("[RAGClient] 连接测试失败: %v", err)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if !ok {
		log.Warnf("[RAGClient] 服务可达但返回错误状态: %s", resp.Status)
	}
	return ok
}
