package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// RESTClient implements Server against the taskwell REST surface. Responses
// in the 4xx range are permanent (wrapped in ErrRejected); network errors
// and 5xx are transient and leave the action queued.
type RESTClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewRESTClient(baseURL string, token string) *RESTClient {
	return &RESTClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// serverTask mirrors the server's task JSON, with its numeric id.
type serverTask struct {
	ID        uint       `json:"id"`
	ListID    uint       `json:"listId"`
	Text      string     `json:"text"`
	Completed bool       `json:"completed"`
	Due       *time.Time `json:"due"`
	Priority  string     `json:"priority"`
	Category  string     `json:"category"`
	Repeat    string     `json:"repeat"`
	Order     int        `json:"order"`
}

func (remote serverTask) toClientTask() Task {
	return Task{
		ID:        strconv.FormatUint(uint64(remote.ID), 10),
		ListID:    remote.ListID,
		Text:      remote.Text,
		Completed: remote.Completed,
		Due:       remote.Due,
		Priority:  remote.Priority,
		Category:  remote.Category,
		Repeat:    remote.Repeat,
		Order:     remote.Order,
	}
}

func (client *RESTClient) FetchTasks(ctx context.Context, listID uint) ([]Task, error) {
	var remotes []serverTask
	if err := client.call(ctx, http.MethodGet, fmt.Sprintf("/lists/%d/tasks", listID), nil, &remotes); err != nil {
		return nil, err
	}
	tasks := make([]Task, 0, len(remotes))
	for _, remote := range remotes {
		tasks = append(tasks, remote.toClientTask())
	}
	return tasks, nil
}

func (client *RESTClient) CreateTask(ctx context.Context, listID uint, task Task) (Task, error) {
	body := map[string]any{
		"text":     task.Text,
		"due":      task.Due,
		"priority": task.Priority,
		"category": task.Category,
		"repeat":   task.Repeat,
	}
	var remote serverTask
	if err := client.call(ctx, http.MethodPost, fmt.Sprintf("/lists/%d/tasks", listID), body, &remote); err != nil {
		return Task{}, err
	}
	return remote.toClientTask(), nil
}

func (client *RESTClient) UpdateTask(ctx context.Context, listID uint, taskID string, patch Patch) (Task, error) {
	var remote serverTask
	if err := client.call(ctx, http.MethodPut, fmt.Sprintf("/lists/%d/tasks/%s", listID, taskID), map[string]any(patch), &remote); err != nil {
		return Task{}, err
	}
	return remote.toClientTask(), nil
}

func (client *RESTClient) DeleteTask(ctx context.Context, listID uint, taskID string) error {
	return client.call(ctx, http.MethodDelete, fmt.Sprintf("/lists/%d/tasks/%s", listID, taskID), nil, nil)
}

func (client *RESTClient) ReorderTasks(ctx context.Context, listID uint, orderedIDs []string) error {
	numericIDs := make([]uint64, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		numericID, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: reorder id %q", ErrRejected, id)
		}
		numericIDs = append(numericIDs, numericID)
	}
	body := map[string]any{"orderedIds": numericIDs}
	return client.call(ctx, http.MethodPut, fmt.Sprintf("/lists/%d/tasks/reorder", listID), body, nil)
}

func (client *RESTClient) call(ctx context.Context, method string, path string, body any, result any) error {
	var requestBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		requestBody = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, requestBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+client.token)
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("server status %d", response.StatusCode)
	}
	if response.StatusCode >= http.StatusBadRequest {
		message, _ := io.ReadAll(io.LimitReader(response.Body, 1024))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, response.StatusCode, string(message))
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
