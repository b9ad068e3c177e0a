// Package gsheets wraps the Google Sheets API for the user-record sheet:
// rows are keyed by phone number and updated by column name.
package gsheets

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// readRange covers the whole sheet; simple and robust for the small
// user sheets this serves.
const readRange = "A1:Z1000"

// phoneHeaderPattern locates the phone column in the header row.
var phoneHeaderPattern = regexp.MustCompile(`(?i)phone|telefone`)

var nonDigits = regexp.MustCompile(`\D`)

// Client is a wrapper around the Google Sheets API service.
type Client struct {
	service *sheets.Service
}

// NewClient creates a new Google Sheets API client using the provided
// authenticated HTTP client.
func NewClient(ctx context.Context, httpClient *http.Client) (*Client, error) {
	service, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{service: service}, nil
}

// Row is one user record: header name to cell value, plus the 1-based
// sheet row index (the header row is 1). Headers preserves the sheet's
// column order, which map iteration would lose.
type Row struct {
	Headers  []string
	Values   map[string]string
	RowIndex int
}

// Get returns the named column's value, matching the header
// case-insensitively. Returns "" when the column is absent.
func (r *Row) Get(name string) string {
	if r == nil {
		return ""
	}
	for header, value := range r.Values {
		if strings.EqualFold(header, name) {
			return value
		}
	}
	return ""
}

// DigitsOnly strips everything but digits from a phone number.
func DigitsOnly(phone string) string {
	return nonDigits.ReplaceAllString(phone, "")
}

// FindUserByPhone looks a user up by phone number. Matching compares
// digits only and accepts an exact match or a row value that ends with
// the wanted digits (so stored numbers with a country code still match).
// Returns nil, nil when no row matches.
func (c *Client) FindUserByPhone(ctx context.Context, spreadsheetID, sheetName, phone string) (*Row, error) {
	rows, err := c.readAll(ctx, spreadsheetID, sheetName)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	idx, err := locateRowByPhone(rows, phone)
	if err != nil {
		return nil, err
	}
	if idx == -1 {
		return nil, nil
	}

	headers := headerStrings(rows[0])
	values := make(map[string]string, len(headers))
	for col, header := range headers {
		values[header] = cellString(rows[idx], col)
	}

	return &Row{Headers: headers, Values: values, RowIndex: idx + 1}, nil
}

// UpdateUserByPhone locates the user's row by phone and applies the
// given column-name to value updates (column names matched
// case-insensitively against the header row), writing the whole row
// back. Returns the 1-based row that was written.
func (c *Client) UpdateUserByPhone(ctx context.Context, spreadsheetID, sheetName, phone string, updates map[string]string) (int, error) {
	rows, err := c.readAll(ctx, spreadsheetID, sheetName)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("sheet %q is empty", sheetName)
	}

	idx, err := locateRowByPhone(rows, phone)
	if err != nil {
		return 0, err
	}
	if idx == -1 {
		return 0, fmt.Errorf("phone %q not found in sheet %q", phone, sheetName)
	}

	headers := headerStrings(rows[0])
	row := applyUpdates(headers, rows[idx], updates)

	// Header row is sheet row 1, so data row idx maps to idx+1.
	sheetRow := idx + 1
	writeRange := fmt.Sprintf("%s!A%d:%s%d", sheetName, sheetRow, colIndexToA1(len(headers)-1), sheetRow)

	_, err = c.service.Spreadsheets.Values.Update(spreadsheetID, writeRange, &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to write row %d: %w", sheetRow, err)
	}

	return sheetRow, nil
}

func (c *Client) readAll(ctx context.Context, spreadsheetID, sheetName string) ([][]interface{}, error) {
	resp, err := c.service.Spreadsheets.Values.Get(spreadsheetID, sheetName+"!"+readRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	return resp.Values, nil
}

// locateRowByPhone returns the 0-based index of the first data row whose
// phone cell matches the wanted number (digits-only, equals or
// ends-with), or -1 when nothing matches.
func locateRowByPhone(rows [][]interface{}, phone string) (int, error) {
	headers := headerStrings(rows[0])

	phoneIdx := -1
	for i, header := range headers {
		if phoneHeaderPattern.MatchString(header) {
			phoneIdx = i
			break
		}
	}
	if phoneIdx == -1 {
		return -1, fmt.Errorf("no phone column found in header row")
	}

	wanted := DigitsOnly(phone)
	for i := 1; i < len(rows); i++ {
		current := DigitsOnly(cellString(rows[i], phoneIdx))
		if current == "" {
			continue
		}
		if current == wanted || strings.HasSuffix(current, wanted) {
			return i, nil
		}
	}

	return -1, nil
}

// applyUpdates returns the row with the named columns replaced. Unknown
// column names are ignored. The result is padded out to the header
// width so the write-back covers every column.
func applyUpdates(headers []string, row []interface{}, updates map[string]string) []interface{} {
	out := make([]interface{}, len(headers))
	for i := range headers {
		out[i] = cellString(row, i)
	}

	for name, value := range updates {
		for i, header := range headers {
			if strings.EqualFold(header, name) {
				out[i] = value
				break
			}
		}
	}

	return out
}

func headerStrings(row []interface{}) []string {
	headers := make([]string, len(row))
	for i := range row {
		headers[i] = strings.TrimSpace(cellString(row, i))
	}
	return headers
}

func cellString(row []interface{}, idx int) string {
	if idx >= len(row) || row[idx] == nil {
		return ""
	}
	return fmt.Sprintf("%v", row[idx])
}

// colIndexToA1 converts a 0-based column index to its A1 column letters
// (0 = A, 25 = Z, 26 = AA).
func colIndexToA1(idx int) string {
	var s string
	n := idx + 1
	for n > 0 {
		r := (n - 1) % 26
		s = string(rune('A'+r)) + s
		n = (n - 1) / 26
	}
	return s
}
