// Package storeclient is a core.SessionStore backed by the store HTTP API.
package storeclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/dkeye/Livecast/internal/adapters/storeapi"
	"github.com/dkeye/Livecast/internal/core"
	"github.com/dkeye/Livecast/internal/domain"
)

const maxBody = 1 << 20

type Client struct {
	base  string
	http  *http.Client
	codec storeapi.Codec
}

var _ core.SessionStore = (*Client)(nil)

// New returns a client for the server at baseURL. A nil hc uses http.DefaultClient.
func New(baseURL string, codec storeapi.Codec, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if codec == nil {
		codec = storeapi.JSON
	}
	return &Client{base: strings.TrimSuffix(baseURL, "/"), http: hc, codec: codec}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.base + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var body io.Reader
	if in != nil {
		data, err := c.codec.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", c.codec.ContentType())
	}
	req.Header.Set("Accept", c.codec.ContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}

	if resp.StatusCode >= 300 {
		var e storeapi.ErrorResponse
		if err := storeapi.CodecFor(resp.Header.Get("Content-Type")).Unmarshal(data, &e); err == nil {
			if sentinel := storeapi.ErrorOf(e.Code); sentinel != nil {
				return fmt.Errorf("%s %s: %w", method, path, sentinel)
			}
			return fmt.Errorf("%s %s: %s (%s)", method, path, e.Message, resp.Status)
		}
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := storeapi.CodecFor(resp.Header.Get("Content-Type")).Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func sessionPath(sid domain.SessionID, parts ...string) string {
	p := "/api/sessions/" + sid.String()
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func viewerQuery(viewer domain.ParticipantID) url.Values {
	return url.Values{"viewer": []string{string(viewer)}}
}

func (c *Client) StartBroadcast(ctx context.Context, broadcaster domain.ParticipantID, offer domain.Description) (domain.SessionID, error) {
	var resp storeapi.StartResponse
	err := c.do(ctx, http.MethodPost, "/api/sessions", nil, storeapi.StartRequest{Broadcaster: broadcaster, Offer: offer}, &resp)
	return resp.SessionID, err
}

func (c *Client) JoinAsViewer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) error {
	return c.do(ctx, http.MethodPost, sessionPath(sid, "viewers"), nil, storeapi.JoinRequest{Viewer: viewer}, nil)
}

func (c *Client) GetOffer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) (domain.Description, error) {
	var offer domain.Description
	err := c.do(ctx, http.MethodGet, sessionPath(sid, "offer"), viewerQuery(viewer), nil, &offer)
	return offer, err
}

func (c *Client) SendAnswer(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, answer domain.Description) error {
	return c.do(ctx, http.MethodPut, sessionPath(sid, "viewers", string(viewer), "answer"), nil, answer, nil)
}

func (c *Client) GetAnswer(ctx context.Context, sid domain.SessionID) (domain.ParticipantID, domain.Description, error) {
	var resp storeapi.AnswerResponse
	err := c.do(ctx, http.MethodGet, sessionPath(sid, "answer"), nil, nil, &resp)
	return resp.Viewer, resp.Answer, err
}

func (c *Client) AddBroadcasterCandidates(ctx context.Context, sid domain.SessionID, cs []domain.Candidate) error {
	return c.do(ctx, http.MethodPost, sessionPath(sid, "candidates", "broadcaster"), nil, storeapi.Candidates{Candidates: cs}, nil)
}

func (c *Client) AddViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID, cs []domain.Candidate) error {
	return c.do(ctx, http.MethodPost, sessionPath(sid, "viewers", string(viewer), "candidates"), nil, storeapi.Candidates{Candidates: cs}, nil)
}

func (c *Client) GetBroadcasterCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	var resp storeapi.Candidates
	err := c.do(ctx, http.MethodGet, sessionPath(sid, "candidates", "broadcaster"), viewerQuery(viewer), nil, &resp)
	return resp.Candidates, err
}

func (c *Client) GetViewerCandidates(ctx context.Context, sid domain.SessionID, viewer domain.ParticipantID) ([]domain.Candidate, error) {
	var resp storeapi.Candidates
	err := c.do(ctx, http.MethodGet, sessionPath(sid, "viewers", string(viewer), "candidates"), nil, nil, &resp)
	return resp.Candidates, err
}

func (c *Client) ShouldFinish(ctx context.Context, sid domain.SessionID) (bool, error) {
	var resp storeapi.FinishedResponse
	if err := c.do(ctx, http.MethodGet, sessionPath(sid, "finished"), nil, nil, &resp); err != nil {
		return true, err
	}
	return resp.Finished, nil
}

// Finish asks the server to end a session. It is an operator action, agents do not call it.
func (c *Client) Finish(ctx context.Context, sid domain.SessionID) error {
	return c.do(ctx, http.MethodDelete, sessionPath(sid), nil, nil, nil)
}
