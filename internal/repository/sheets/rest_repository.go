package sheets

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/farmbook/internal/config"
)

// RESTRepository implements Repository against the Sheets v4 REST endpoints
// using the static spreadsheet id and API key pair.
type RESTRepository struct {
	httpClient    *resty.Client
	spreadsheetID string
	apiKey        string
	logger        *zap.Logger
}

// NewRESTRepository builds a resty-backed repository.
func NewRESTRepository(cfg config.SheetsConfig, logger *zap.Logger) *RESTRepository {
	if logger == nil {
		logger = zap.NewNop()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout)

	return &RESTRepository{
		httpClient:    restyClient,
		spreadsheetID: cfg.SpreadsheetID,
		apiKey:        cfg.APIKey,
		logger:        logger,
	}
}

type valueRange struct {
	Range  string          `json:"range,omitempty"`
	Values [][]interface{} `json:"values"`
}

// apiError mirrors the Google API error envelope.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// ReadRange fetches the values of a range.
func (r *RESTRepository) ReadRange(ctx context.Context, sheetRange string) ([][]interface{}, error) {
	if sheetRange == "" {
		return nil, fmt.Errorf("sheetRange must not be empty")
	}

	result := new(valueRange)
	apiErr := new(apiError)

	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", r.apiKey).
		SetResult(result).
		SetError(apiErr).
		Get(fmt.Sprintf("/%s/values/%s", url.PathEscape(r.spreadsheetID), url.PathEscape(sheetRange)))
	if err != nil {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("read range %s: %w", sheetRange, statusError(resp, apiErr))
	}

	return result.Values, nil
}

// AppendRows appends rows after the last row of the range.
func (r *RESTRepository) AppendRows(ctx context.Context, sheetRange string, rows [][]interface{}) error {
	if sheetRange == "" {
		return fmt.Errorf("sheetRange must not be empty")
	}

	apiErr := new(apiError)

	resp, err := r.httpClient.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":              r.apiKey,
			"valueInputOption": "USER_ENTERED",
			"insertDataOption": "INSERT_ROWS",
		}).
		SetBody(valueRange{Values: rows}).
		SetError(apiErr).
		Post(fmt.Sprintf("/%s/values/%s:append", url.PathEscape(r.spreadsheetID), url.PathEscape(sheetRange)))
	if err != nil {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("append rows into range %s: %w", sheetRange, statusError(resp, apiErr))
	}

	r.logger.Debug("rows appended to sheet", zap.String("range", sheetRange), zap.Int("rows", len(rows)))
	return nil
}

func statusError(resp *resty.Response, apiErr *apiError) error {
	code := resp.StatusCode()
	message := ""
	if apiErr != nil {
		message = apiErr.Error.Message
		if apiErr.Error.Code != 0 {
			code = apiErr.Error.Code
		}
	}
	return fmt.Errorf("sheets api error: code=%d, message=%s", code, message)
}
