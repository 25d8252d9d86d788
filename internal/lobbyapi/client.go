// internal/lobbyapi/client.go
package lobbyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/abhijit77github/turn-game/internal/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx answer from the lobby API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("lobby api: status %d", e.Status)
	}
	return fmt.Sprintf("lobby api: status %d: %s", e.Status, e.Detail)
}

// IsStatus reports whether err is an *APIError with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}

var ErrNoToken = errors.New("not logged in")

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type CreatedRoom struct {
	RoomCode   string `json:"room_code"`
	GameType   string `json:"game_type"`
	MaxPlayers int    `json:"max_players"`
	Creator    string `json:"creator"`
}

type JoinedRoom struct {
	RoomCode string   `json:"room_code"`
	GameType string   `json:"game_type"`
	Players  []string `json:"players"`
	Creator  string   `json:"creator"`
}

// GameInfo describes one game type the server offers.
type GameInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Description string `json:"description,omitempty"`
}

// Client talks to the HTTP side of the game server: accounts and rooms.
// The token is set by Login/Register or SetToken and sent as a bearer token.
type Client struct {
	base  string
	http  *http.Client
	log   logrus.FieldLogger
	token string
}

// New builds a client for base+prefix, e.g. "http://localhost:8000" + "/api".
func New(base, prefix string, log logrus.FieldLogger) *Client {
	if log == nil {
		log = logrus.StandardLogger()
	}
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Client{
		base: strings.TrimRight(base, "/") + prefix,
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: middleware.LogTransport(log, nil),
		},
		log: log,
	}
}

func (c *Client) Token() string         { return c.token }
func (c *Client) SetToken(token string) { c.token = token }

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "/register", username, password)
}

// Login exchanges credentials for a token and keeps it.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	return c.authenticate(ctx, "/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (string, error) {
	var out TokenResponse
	body := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, http.MethodPost, path, false, body, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("%s: empty access token", path)
	}
	c.token = out.AccessToken
	return out.AccessToken, nil
}

// CreateRoom opens a room for gameType; an empty type lets the server choose.
func (c *Client) CreateRoom(ctx context.Context, gameType string) (CreatedRoom, error) {
	var out CreatedRoom
	body := map[string]string{}
	if gameType != "" {
		body["game_type"] = gameType
	}
	err := c.do(ctx, http.MethodPost, "/room/create", true, body, &out)
	return out, err
}

func (c *Client) JoinRoom(ctx context.Context, roomCode string) (JoinedRoom, error) {
	var out JoinedRoom
	body := map[string]string{"room_code": strings.ToUpper(roomCode)}
	err := c.do(ctx, http.MethodPost, "/room/join", true, body, &out)
	return out, err
}

func (c *Client) Games(ctx context.Context) ([]GameInfo, error) {
	var out []GameInfo
	err := c.do(ctx, http.MethodGet, "/games", false, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, auth bool, in, out any) error {
	if auth && c.token == "" {
		return ErrNoToken
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s body: %w", path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", path, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// decodeError reads a FastAPI style {"detail": ...} body. Validation errors
// carry a list in detail; it is kept as raw JSON text.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(data, &body) == nil && len(body.Detail) > 0 {
		var s string
		if json.Unmarshal(body.Detail, &s) == nil {
			apiErr.Detail = s
		} else {
			apiErr.Detail = string(body.Detail)
		}
		return apiErr
	}
	apiErr.Detail = strings.TrimSpace(string(data))
	return apiErr
}

// Subject returns the "sub" claim of token, which the server sets to the
// username. The signature is not checked here; the server verifies it.
func Subject(token string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	sub, err := claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("invalid jwt claims: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return sub, nil
}
