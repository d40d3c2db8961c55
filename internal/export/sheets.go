package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Credentials locates Google credentials. A service account is used
// unless an OAuth client is set, in which case a previously authorized
// user token is required. For each pair JSON wins over File; with no
// service account set GOOGLE_APPLICATION_CREDENTIALS is used.
type Credentials struct {
	JSON string
	File string

	OAuthClientJSON string
	OAuthClientFile string
	OAuthTokenJSON  string
	OAuthTokenFile  string
}

// UsesOAuth reports whether an OAuth client is configured.
func (c Credentials) UsesOAuth() bool {
	return strings.TrimSpace(c.OAuthClientJSON) != "" || strings.TrimSpace(c.OAuthClientFile) != ""
}

func (c Credentials) load() ([]byte, error) {
	file := strings.TrimSpace(c.File)
	if strings.TrimSpace(c.JSON) == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	b, err := inlineOrFile(c.JSON, file, "service account")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return b, nil
}

// inlineOrFile returns inline when set, else the file contents, else nil.
func inlineOrFile(inline, file, what string) ([]byte, error) {
	inline = strings.TrimSpace(inline)
	file = strings.TrimSpace(file)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read %s file: %w", what, err)
		}
		return b, nil
	default:
		return nil, nil
	}
}

// OAuthConfig parses an OAuth client definition for the Sheets scope.
func OAuthConfig(c Credentials, redirectURL string) (*oauth2.Config, error) {
	b, err := inlineOrFile(c.OAuthClientJSON, c.OAuthClientFile, "oauth client")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("missing oauth client (set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE)")
	}
	cfg, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	if redirectURL != "" {
		cfg.RedirectURL = redirectURL
	}
	return cfg, nil
}

func (c Credentials) oauthToken() (*oauth2.Token, error) {
	b, err := inlineOrFile(c.OAuthTokenJSON, c.OAuthTokenFile, "oauth token")
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, errors.New("missing oauth token (set GOOGLE_OAUTH_TOKEN_JSON or GOOGLE_OAUTH_TOKEN_FILE)")
	}
	var tok oauth2.Token
	if err := json.Unmarshal(b, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return &tok, nil
}

// SaveToken writes tok to path readable only by the owner.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

// NewSheetsService creates a Sheets API client from creds. Extra options
// are appended after the credentials.
func NewSheetsService(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*gsheet.Service, error) {
	var auth []goption.ClientOption
	if creds.UsesOAuth() {
		cfg, err := OAuthConfig(creds, "")
		if err != nil {
			return nil, err
		}
		tok, err := creds.oauthToken()
		if err != nil {
			return nil, err
		}
		auth = []goption.ClientOption{goption.WithTokenSource(cfg.TokenSource(ctx, tok))}
		slog.InfoContext(ctx, "Using OAuth user credentials for Google Sheets")
	} else {
		b, err := creds.load()
		if err != nil {
			return nil, err
		}
		auth = []goption.ClientOption{
			goption.WithCredentialsJSON(b),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
		slog.InfoContext(ctx, "Using service account credentials for Google Sheets", "credentials_size", len(b))
	}

	svc, err := gsheet.NewService(ctx, append(auth, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// SheetsTarget mirrors the full export into one sheet.
type SheetsTarget struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

func NewSheetsTarget(svc *gsheet.Service, spreadsheetID, sheetName string) (*SheetsTarget, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Moods"
	}
	return &SheetsTarget{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func (s *SheetsTarget) Name() string { return "sheets:" + s.sheetName }

// Export clears the sheet's columns and writes header plus rows with RAW
// input so mood labels are never reinterpreted as formulas or dates.
func (s *SheetsTarget) Export(ctx context.Context, rows []Row) error {
	clearRange := fmt.Sprintf("%s!A:%c", s.sheetName, 'A'+len(Header)-1)
	if _, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, clearRange, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", clearRange, err)
	}

	values := make([][]any, 0, len(rows)+1)
	values = append(values, toAny(Header))
	for _, r := range rows {
		values = append(values, toAny(r.Strings()))
	}

	rng := fmt.Sprintf("%s!A1", s.sheetName)
	if _, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
