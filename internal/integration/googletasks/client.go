// Package googletasks mirrors stored main tasks into a Google Tasks list.
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/colonyops/tasky/internal/core/logging"
	"github.com/colonyops/tasky/internal/core/task"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/tasks/v1"
)

const (
	// DefaultListID is the user's default task list.
	DefaultListID = "@default"

	// APITimeout bounds each individual API call.
	APITimeout = 5 * time.Second

	statusNeedsAction = "needsAction"
	statusCompleted   = "completed"
)

var (
	// ErrUnauthorized is returned when Google rejects the stored credentials.
	ErrUnauthorized = errors.New("google tasks: unauthorized")

	// ErrNoToken is returned when no cached token exists yet.
	ErrNoToken = errors.New("google tasks: no token, run `tasky export google login`")
)

// Client wraps the Google Tasks API service.
type Client struct {
	svc *tasks.Service
	log zerolog.Logger
}

// Exported records the Google ids assigned to a mirrored task.
type Exported struct {
	ListID     string   `json:"listId"`
	ParentID   string   `json:"parentId"`
	SubtaskIDs []string `json:"subtaskIds"`
}

// OAuthConfig loads the OAuth client definition downloaded from the Google
// Cloud console.
func OAuthConfig(credentialsFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, tasks.TasksScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return cfg, nil
}

// New builds a client from the OAuth client file and a cached token.
func New(ctx context.Context, credentialsFile, tokenFile string) (*Client, error) {
	cfg, err := OAuthConfig(credentialsFile)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(tokenFile)
	if err != nil {
		return nil, err
	}

	return NewWithHTTPClient(ctx, oauth2.NewClient(ctx, cfg.TokenSource(ctx, tok)))
}

// NewWithHTTPClient builds a client on top of an already authenticated HTTP
// client. Extra options are appended, which lets tests point the service at
// a local endpoint.
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)

	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create tasks service: %w", err)
	}

	return &Client{
		svc: svc,
		log: logging.Component("googletasks"),
	}, nil
}

// Export inserts mt into listID and each of its subtasks as children,
// preserving subtask order.
func (c *Client) Export(ctx context.Context, listID string, mt task.MainTask) (Exported, error) {
	if listID == "" {
		listID = DefaultListID
	}

	out := Exported{ListID: listID}

	parent, err := c.insert(ctx, listID, "", "", &tasks.Task{
		Title:  mt.Title,
		Notes:  mainNotes(mt),
		Status: googleStatus(mt.Status),
	})
	if err != nil {
		return out, fmt.Errorf("insert task %s: %w", mt.ID, err)
	}
	out.ParentID = parent.Id

	previous := ""
	for _, st := range mt.Subtasks {
		gt := &tasks.Task{
			Title:  st.Title,
			Notes:  subtaskNotes(st),
			Status: googleStatus(st.Status),
		}
		if st.EndAt != nil {
			gt.Due = st.EndAt.UTC().Format(time.RFC3339)
		}

		child, err := c.insert(ctx, listID, parent.Id, previous, gt)
		if err != nil {
			return out, fmt.Errorf("insert subtask %s: %w", st.ID, err)
		}
		out.SubtaskIDs = append(out.SubtaskIDs, child.Id)
		previous = child.Id
	}

	c.log.Info().
		Str("task_id", mt.ID).
		Str("list_id", listID).
		Int("subtasks", len(out.SubtaskIDs)).
		Msg("task exported")

	return out, nil
}

func (c *Client) insert(ctx context.Context, listID, parentID, previousID string, t *tasks.Task) (*tasks.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	call := c.svc.Tasks.Insert(listID, t).Context(ctx)
	if parentID != "" {
		call = call.Parent(parentID)
	}
	if previousID != "" {
		call = call.Previous(previousID)
	}

	created, err := call.Do()
	if err != nil {
		return nil, wrapError(err)
	}
	return created, nil
}

func wrapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrUnauthorized, gerr.Message)
		}
	}
	return err
}

func googleStatus(s task.Status) string {
	if s == task.StatusCompleted {
		return statusCompleted
	}
	return statusNeedsAction
}

func mainNotes(mt task.MainTask) string {
	notes := mt.Description
	if mt.Duration != nil {
		if notes != "" {
			notes += "\n\n"
		}
		notes += "Duration: " + strconv.Itoa(*mt.Duration) + " min"
	}
	return notes
}

func subtaskNotes(st task.Subtask) string {
	notes := st.Description
	if notes != "" {
		notes += "\n\n"
	}
	return notes + "Duration: " + strconv.Itoa(st.Duration) + " min"
}

// LoadToken reads a cached OAuth token.
func LoadToken(path string) (*oauth2.Token, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("read token: %w", err)
	}

	tok := &oauth2.Token{}
	if err := json.Unmarshal(b, tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	return tok, nil
}

// SaveToken writes tok to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}

	b, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}

// AuthURL returns the consent URL the user opens to authorize tasky.
func AuthURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL("tasky", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// Exchange trades an authorization code for a token and caches it.
func Exchange(ctx context.Context, cfg *oauth2.Config, code, tokenFile string) error {
	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return SaveToken(tokenFile, tok)
}
