// Package client is the HTTP binding of the workflow ports. A Client holds
// one applicant session; the workflow controller drives it without knowing
// a network sits underneath.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"intake/internal/application/models"
	"intake/internal/transport/http/shared"
	id "intake/pkg/domain"
	dErrors "intake/pkg/domain-errors"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	resumeCode string
}

type Option func(c *Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken seeds an existing session token, for callers that persist it
// across process restarts.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the current session token.
func (c *Client) Token() string {
	return c.token
}

// ResumeCode returns the one-time code captured at creation. Empty after a
// resume; the backend never replays it.
func (c *Client) ResumeCode() string {
	return c.resumeCode
}

type createResponse struct {
	Application *models.Record `json:"application"`
	ResumeCode  string         `json:"resume_code"`
	AccessToken string         `json:"access_token"`
}

type resumeResponse struct {
	Application *models.Record `json:"application"`
	AccessToken string         `json:"access_token"`
}

// Create opens a draft from the accumulated opening slice and captures the
// session token and resume code.
func (c *Client) Create(ctx context.Context, data models.StepData) (id.ApplicationID, error) {
	req := models.CreateApplicationRequest{}
	if data.Personal != nil {
		req.Personal = *data.Personal
	}
	if data.Subject != nil {
		req.Subject = *data.Subject
	}

	var resp createResponse
	if err := c.call(ctx, http.MethodPost, "/applications", req, &resp); err != nil {
		return id.ApplicationID{}, err
	}
	if resp.Application == nil {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeInternal, "backend returned no application")
	}
	c.token = resp.AccessToken
	c.resumeCode = resp.ResumeCode
	return resp.Application.ID, nil
}

// Resume re-opens a session against an existing draft and returns it.
func (c *Client) Resume(ctx context.Context, applicationID, resumeCode string) (*models.Record, error) {
	req := models.ResumeRequest{
		ApplicationID: applicationID,
		ResumeCode:    resumeCode,
	}
	var resp resumeResponse
	if err := c.call(ctx, http.MethodPost, "/applications/resume", req, &resp); err != nil {
		return nil, err
	}
	if resp.Application == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "backend returned no application")
	}
	c.token = resp.AccessToken
	c.resumeCode = ""
	return resp.Application, nil
}

func (c *Client) Update(ctx context.Context, appID id.ApplicationID, data models.StepData, lastCompletedStep int) error {
	req := models.UpdateDraftRequest{
		Data:              data,
		LastCompletedStep: lastCompletedStep,
	}
	path := "/applications/" + appID.String() + "/draft"
	return c.call(ctx, http.MethodPut, path, req, nil)
}

func (c *Client) Fetch(ctx context.Context, appID id.ApplicationID) (*models.Record, error) {
	var rec models.Record
	if err := c.call(ctx, http.MethodGet, "/applications/"+appID.String(), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Submit(ctx context.Context, appID id.ApplicationID) error {
	return c.call(ctx, http.MethodPost, "/applications/"+appID.String()+"/submit", nil, nil)
}

// List implements the document lister port for the documents gate.
func (c *Client) List(ctx context.Context, appID id.ApplicationID) ([]models.Document, error) {
	var docs []models.Document
	path := "/applications/" + appID.String() + "/documents"
	if err := c.call(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Quote implements the price quoter port for the payment gate.
func (c *Client) Quote(ctx context.Context, appID id.ApplicationID) (models.PriceQuote, error) {
	var quote models.PriceQuote
	path := "/applications/" + appID.String() + "/quote"
	if err := c.call(ctx, http.MethodGet, path, nil, &quote); err != nil {
		return models.PriceQuote{}, err
	}
	return quote, nil
}

// call performs one round trip. A transport failure maps to unavailable so
// the forgiving persistence policy upstream can treat it as a warning; an
// error envelope from the backend keeps its domain code.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "backend unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "decode backend response")
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var envelope shared.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
		return dErrors.Newf(dErrors.CodeInternal, "backend returned status %d", resp.StatusCode)
	}
	domainErr := dErrors.New(dErrors.Code(envelope.Error), envelope.ErrorDescription)
	for _, f := range envelope.Fields {
		domainErr = dErrors.Add(domainErr, f.Path, f.Message)
	}
	return domainErr
}
