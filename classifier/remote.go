package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-pitch/logging"
	"gonum.org/v1/gonum/mat"
)

// --- Remote inference (/predict) ---
type predictReq struct {
	Inputs [][]float64 `json:"inputs"`
}
type predictResp struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// Remote sends feature batches to a model server over HTTP
type Remote struct {
	url    string
	c      *http.Client
	logger logging.Logger
}

// NewRemote creates a client for the model server at url. A zero timeout
// leaves requests bounded only by their context.
func NewRemote(url string, timeout time.Duration) *Remote {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 3 * time.Minute,
		}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       2 * time.Minute,
		TLSHandshakeTimeout:   30 * time.Second,
		ResponseHeaderTimeout: timeout,
	}
	return &Remote{
		url: strings.TrimRight(url, "/"),
		c: &http.Client{
			Transport: tr,
			Timeout:   timeout,
		},
		logger: logging.WithFields(logging.Fields{
			"component": "remote_classifier",
			"url":       url,
		}),
	}
}

// PredictBatch posts the batch and returns the server's probabilities
func (r *Remote) PredictBatch(ctx context.Context, batch *mat.Dense) (*mat.Dense, error) {
	rows, cols := batch.Dims()
	inputs := make([][]float64, rows)
	for i := range rows {
		inputs[i] = batch.RawRowView(i)
	}

	b, err := json.Marshal(predictReq{Inputs: inputs})
	if err != nil {
		return nil, fmt.Errorf("predict marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url+"/predict", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	r.logger.WithContext(ctx).Debug("Sending prediction request", logging.Fields{
		"rows": rows,
		"cols": cols,
	})

	resp, err := r.c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		const maxErr = 4096
		lb := io.LimitReader(resp.Body, maxErr)
		body, _ := io.ReadAll(lb)
		return nil, fmt.Errorf("predict %s: %s",
			resp.Status, strings.TrimSpace(string(body)))
	}

	var out predictResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("predict decode: %w", err)
	}

	if len(out.Probabilities) != rows {
		return nil, fmt.Errorf("predict returned %d rows for %d frames", len(out.Probabilities), rows)
	}
	if rows == 0 {
		return nil, fmt.Errorf("predict returned an empty batch")
	}

	width := len(out.Probabilities[0])
	if width == 0 {
		return nil, fmt.Errorf("predict returned rows without scores")
	}
	data := make([]float64, 0, rows*width)
	for i, row := range out.Probabilities {
		if len(row) != width {
			return nil, fmt.Errorf("predict row %d has %d columns, want %d", i, len(row), width)
		}
		data = append(data, row...)
	}
	probs := mat.NewDense(rows, width, data)

	if err := ValidateOutput(batch, probs); err != nil {
		return nil, err
	}
	return probs, nil
}
