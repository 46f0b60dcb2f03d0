package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/config"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/internal/logger"
	"github.com/EdwinT12/Teachers-Portal-main-sub001/pkg/errors"
)

// ValueWrite is one cell update inside a grouped write: an A1-style ref and
// the value to place there. Writes are last-write-wins on the remote side,
// so re-sending the same write is harmless.
type ValueWrite struct {
	Ref   string `json:"range"`
	Value string `json:"value"`
}

type batchUpdateRequest struct {
	Data []ValueWrite `json:"data"`
}

type batchUpdateResponse struct {
	UpdatedCells int    `json:"updated_cells"`
	Message      string `json:"message,omitempty"`
}

type sheetListResponse struct {
	Sheets []struct {
		Title string `json:"title"`
	} `json:"sheets"`
}

// Client talks to the spreadsheet service. The engine is write-only toward
// the mirror; the only read is the sheet-title metadata listing.
type Client struct {
	cfg        *config.Config
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Sheets.Timeout,
		},
		log: logger.Get(),
	}
}

// BatchWrite sends one grouped update for a single sheet tab.
func (c *Client) BatchWrite(ctx context.Context, token, spreadsheetID string, writes []ValueWrite) error {
	if len(writes) == 0 {
		return fmt.Errorf("empty write batch")
	}

	jsonData, err := json.Marshal(batchUpdateRequest{Data: writes})
	if err != nil {
		return fmt.Errorf("failed to marshal batch: %w", err)
	}

	url := fmt.Sprintf("%s/spreadsheets/%s/values:batchUpdate", c.cfg.Sheets.BaseURL, spreadsheetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	c.log.Debug().Int("batch_size", len(writes)).Str("spreadsheet", spreadsheetID).Msg("Sending grouped cell write")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var batchResp batchUpdateResponse
		if err := json.NewDecoder(resp.Body).Decode(&batchResp); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		c.log.Debug().Int("updated_cells", batchResp.UpdatedCells).Msg("Grouped write accepted")
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		body, _ := io.ReadAll(resp.Body)
		return errors.NewAuthError(resp.StatusCode, string(body))
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("spreadsheet service returned status %d: %s", resp.StatusCode, string(body))
	}
}

// WriteCell writes a single cell. Grouped writes are preferred; this exists
// for one-off corrections.
func (c *Client) WriteCell(ctx context.Context, token, spreadsheetID string, addr CellAddress, value string) error {
	return c.BatchWrite(ctx, token, spreadsheetID, []ValueWrite{{Ref: addr.Ref(), Value: value}})
}

// ListSheetTitles fetches the tab titles of a spreadsheet.
func (c *Client) ListSheetTitles(ctx context.Context, token, spreadsheetID string) ([]string, error) {
	url := fmt.Sprintf("%s/spreadsheets/%s", c.cfg.Sheets.BaseURL, spreadsheetID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch spreadsheet metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return nil, errors.NewAuthError(resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("spreadsheet service returned status %d: %s", resp.StatusCode, string(body))
	}

	var listResp sheetListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	titles := make([]string, 0, len(listResp.Sheets))
	for _, s := range listResp.Sheets {
		titles = append(titles, s.Title)
	}

	return titles, nil
}
