package recordstore

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/kilianp07/dronecoord/auth"
	"github.com/kilianp07/dronecoord/core/model"
	"github.com/kilianp07/dronecoord/core/store"
)

// SheetsConfig selects one spreadsheet per kind. The first sheet (tab) of
// each spreadsheet holds the table, header on row 1.
type SheetsConfig struct {
	CredentialsFile string `json:"credentials_file"`
	PilotSheetID    string `json:"pilot_sheet_id"`
	DroneSheetID    string `json:"drone_sheet_id"`
	MissionSheetID  string `json:"mission_sheet_id"`
	// OAuth requests tokens with the client-credentials grant when no
	// service account file is given.
	OAuth auth.Conf `json:"oauth"`
	// AccessToken is a fixed bearer token, used when nothing else is set.
	AccessToken string `json:"access_token"`
	// Endpoint overrides the API base URL, mostly for tests.
	Endpoint string `json:"endpoint"`
}

func (c SheetsConfig) sheetID(kind store.Kind) string {
	switch kind {
	case store.KindPilot:
		return c.PilotSheetID
	case store.KindDrone:
		return c.DroneSheetID
	case store.KindMission:
		return c.MissionSheetID
	}
	return ""
}

// Sheets reads and writes records through the Google Sheets v4 API. It
// authenticates with a service account file, an OAuth2 client-credentials
// grant or a fixed bearer token, in that order of preference.
type Sheets struct {
	cfg SheetsConfig
	svc *sheets.Service
}

// NewSheets builds the API client. Extra options are appended after the
// ones derived from cfg.
func NewSheets(ctx context.Context, cfg SheetsConfig, opts ...option.ClientOption) (*Sheets, error) {
	var all []option.ClientOption
	switch {
	case cfg.CredentialsFile != "":
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile), option.WithScopes(sheets.SpreadsheetsScope))
	case cfg.OAuth.Configured():
		oc := cfg.OAuth
		if len(oc.Scopes) == 0 {
			oc.Scopes = []string{sheets.SpreadsheetsScope}
		}
		all = append(all, option.WithTokenSource(auth.NewClientCred(oc).TokenSource(ctx)))
	case cfg.AccessToken != "":
		all = append(all, option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.AccessToken})))
	}
	if cfg.Endpoint != "" {
		all = append(all, option.WithEndpoint(cfg.Endpoint))
	}
	all = append(all, opts...)
	svc, err := sheets.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("sheets store: %w: %w", model.ErrStoreUnavailable, err)
	}
	return &Sheets{cfg: cfg, svc: svc}, nil
}

func (s *Sheets) firstSheet(ctx context.Context, id string) (string, error) {
	ss, err := s.svc.Spreadsheets.Get(id).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return "", err
	}
	if len(ss.Sheets) == 0 || ss.Sheets[0].Properties == nil {
		return "Sheet1", nil
	}
	return ss.Sheets[0].Properties.Title, nil
}

func (s *Sheets) read(ctx context.Context, kind store.Kind) (string, string, store.Table, error) {
	id := s.cfg.sheetID(kind)
	if id == "" {
		return "", "", store.Table{}, fmt.Errorf("%w: no sheet configured for %s", model.ErrStoreUnavailable, kind)
	}
	tab, err := s.firstSheet(ctx, id)
	if err != nil {
		return "", "", store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	vr, err := s.svc.Spreadsheets.Values.Get(id, quoteSheet(tab)).Context(ctx).Do()
	if err != nil {
		return "", "", store.Table{}, fmt.Errorf("%w: %w", model.ErrStoreUnavailable, err)
	}
	return id, tab, valuesToTable(vr.Values), nil
}

// FetchAll reads the first sheet of the spreadsheet bound to kind.
func (s *Sheets) FetchAll(ctx context.Context, kind store.Kind) (store.Table, error) {
	_, _, t, err := s.read(ctx, kind)
	return t, err
}

// CommitField updates a single cell addressed in A1 notation. A column
// missing from the header row is appended first, as the other backends do.
func (s *Sheets) CommitField(ctx context.Context, kind store.Kind, id, field, value string) error {
	sheetID, tab, t, err := s.read(ctx, kind)
	if err != nil {
		return err
	}
	idx := store.LocateRow(kind, t, id)
	if idx < 0 {
		return fmt.Errorf("%s %s: %w", kind, id, model.ErrNotFound)
	}
	col := -1
	for i, c := range t.Columns {
		if store.NormalizeKey(c) == store.NormalizeKey(field) {
			col = i
			break
		}
	}
	if col < 0 {
		col = len(t.Columns)
		if err := s.update(ctx, sheetID, fmt.Sprintf("%s!%s1", quoteSheet(tab), ColumnLetter(col)), field); err != nil {
			return fmt.Errorf("add %s column %q: %w", kind, field, err)
		}
	}
	// +1 for the header row, +1 for 1-based rows
	return s.update(ctx, sheetID, fmt.Sprintf("%s!%s%d", quoteSheet(tab), ColumnLetter(col), idx+2), value)
}

func (s *Sheets) update(ctx context.Context, sheetID, cell, value string) error {
	_, err := s.svc.Spreadsheets.Values.Update(sheetID, cell, &sheets.ValueRange{
		Values: [][]any{{value}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("%w: %w", model.ErrCommitFailed, err)
	}
	return nil
}

func valuesToTable(values [][]any) store.Table {
	if len(values) == 0 {
		return store.Table{}
	}
	t := store.Table{Columns: make([]string, len(values[0]))}
	for i, h := range values[0] {
		t.Columns[i] = fmt.Sprint(h)
	}
	for _, rec := range values[1:] {
		row := make(store.Row, len(t.Columns))
		for i, h := range t.Columns {
			if i < len(rec) {
				row[h] = fmt.Sprint(rec[i])
			} else {
				row[h] = ""
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ColumnLetter converts a zero-based column index to its A1 letters:
// 0 is A, 25 is Z, 26 is AA.
func ColumnLetter(idx int) string {
	var b []byte
	for idx >= 0 {
		b = append([]byte{byte('A' + idx%26)}, b...)
		idx = idx/26 - 1
	}
	return string(b)
}

func quoteSheet(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}
