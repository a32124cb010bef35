package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"quy/internal/core"
	"quy/internal/log"
	ports "quy/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab an Apps Script "active sheet" usually resolves to.
const DefaultSheetName = "Sheet1"

var spreadsheetURL = regexp.MustCompile(`^https://docs\.google\.com/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// Credentials selects the service account used for the Sheets API. JSON wins
// over File when both are set.
type Credentials struct {
	JSON string
	File string
}

// Client writes ledger snapshots through the Sheets API v4.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.SnapshotWriter = (*Client)(nil)

// SpreadsheetID extracts the document id from a spreadsheet URL.
func SpreadsheetID(endpoint string) (string, error) {
	m := spreadsheetURL.FindStringSubmatch(strings.TrimSpace(endpoint))
	if m == nil {
		return "", fmt.Errorf("%w: %q is not a spreadsheet URL", ports.ErrUnsupportedEndpoint, endpoint)
	}
	return m[1], nil
}

// NewService initializes a Sheets service using service account credentials.
// Without explicit credentials GOOGLE_APPLICATION_CREDENTIALS is consulted.
func NewService(ctx context.Context, creds Credentials, opts ...goption.ClientOption) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	log.For(log.ComponentSync).InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)
	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// New binds svc to the spreadsheet behind endpoint.
func New(svc *gsheet.Service, endpoint, sheetName string) (*Client, error) {
	if svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	id, err := SpreadsheetID(endpoint)
	if err != nil {
		return nil, err
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: id, sheetName: sheetName}, nil
}

// Resolver builds clients for spreadsheet URLs sharing one service.
func Resolver(svc *gsheet.Service, sheetName string) ports.Resolver {
	return func(endpoint string) (ports.SnapshotWriter, error) {
		return New(svc, endpoint, sheetName)
	}
}

// Values lays out the ledger the way the Apps Script does: a header row
// followed by one row per record.
func Values(txs []core.Transaction) [][]any {
	values := make([][]any, 0, len(txs)+1)
	header := make([]any, len(core.SheetHeader))
	for i, h := range core.SheetHeader {
		header[i] = h
	}
	values = append(values, header)
	for _, t := range txs {
		values = append(values, []any{t.ID, t.Date, t.Description, string(t.Fund), t.Person, string(t.Kind), int64(t.Amount)})
	}
	return values
}

// WriteSnapshot clears the sheet and rewrites it with txs.
func (c *Client) WriteSnapshot(ctx context.Context, txs []core.Transaction) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, c.sheetName, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", c.sheetName, err)
	}

	rng := fmt.Sprintf("%s!A1", c.sheetName)
	vr := &gsheet.ValueRange{Values: Values(txs)}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", rng, err)
	}

	log.For(log.ComponentSync).InfoContext(ctx, "Ledger written to spreadsheet",
		"spreadsheet_id", c.spreadsheetID,
		"sheet", c.sheetName,
		"records", len(txs))
	return nil
}
