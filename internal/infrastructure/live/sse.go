package live

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"tasktracker/internal/core/ports"
	apperrors "tasktracker/pkg/errors"
)

// SSETransport reads the text/event-stream feed at GET <base><path>?token=.
type SSETransport struct {
	endpoint   string
	httpClient *http.Client
	maxSize    int
}

func NewSSETransport(baseURL, path string, maxMessageSize int64, httpClient *http.Client) *SSETransport {
	if httpClient == nil {
		// no client timeout: the stream is long-lived and bounded by ctx
		httpClient = &http.Client{}
	}
	maxSize := int(maxMessageSize)
	if maxSize <= 0 {
		maxSize = 64 * 1024
	}
	return &SSETransport{
		endpoint:   strings.TrimRight(baseURL, "/") + path,
		httpClient: httpClient,
		maxSize:    maxSize,
	}
}

func (t *SSETransport) Name() string { return "sse" }

func (t *SSETransport) Connect(ctx context.Context, token string) (ports.LiveStream, error) {
	u := t.endpoint + "?" + url.Values{"token": {token}}.Encode()

	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("build sse request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, apperrors.NewTransportError(err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, apperrors.NewAppError(apperrors.CodeForStatus(resp.StatusCode),
			fmt.Sprintf("live updates rejected with status %d", resp.StatusCode), resp.StatusCode)
	}

	return newSSEStream(resp.Body, cancel, t.maxSize), nil
}

// ErrMessageTooLarge reports a pushed event over the size limit. The event
// is skipped and the stream stays usable.
var ErrMessageTooLarge = errors.New("live update exceeds size limit")

type sseStream struct {
	body    io.ReadCloser
	reader  *bufio.Reader
	maxSize int
	cancel  context.CancelFunc
	once    sync.Once
}

func newSSEStream(body io.ReadCloser, cancel context.CancelFunc, maxSize int) *sseStream {
	return &sseStream{
		body:    body,
		reader:  bufio.NewReaderSize(body, min(4096, maxSize)),
		maxSize: maxSize,
		cancel:  cancel,
	}
}

// readLine returns the next line without its terminator. A line longer than
// maxSize is consumed whole and returned as nil with tooLong set.
func (s *sseStream) readLine() (line []byte, tooLong bool, err error) {
	for {
		chunk, isPrefix, err := s.reader.ReadLine()
		if err != nil {
			return nil, false, err
		}
		if !tooLong {
			if len(line)+len(chunk) > s.maxSize {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// Next returns the data of the next event. Multiple data lines are joined
// with a newline; comments and other fields are skipped. An event whose
// lines or joined data exceed the limit yields ErrMessageTooLarge.
func (s *sseStream) Next() ([]byte, error) {
	var data bytes.Buffer
	hasData, oversized := false, false

	for {
		raw, tooLong, err := s.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, apperrors.NewTransportError(err)
		}
		if tooLong {
			oversized = true
			continue
		}

		line := string(raw)
		if line == "" {
			if oversized {
				return nil, ErrMessageTooLarge
			}
			if hasData {
				return data.Bytes(), nil
			}
			continue
		}
		if oversized || strings.HasPrefix(line, ":") {
			continue
		}

		field, value, found := strings.Cut(line, ":")
		if found {
			value = strings.TrimPrefix(value, " ")
		}
		if field != "data" {
			continue
		}
		if data.Len()+len(value)+1 > s.maxSize {
			oversized = true
			continue
		}
		if hasData {
			data.WriteByte('\n')
		}
		data.WriteString(value)
		hasData = true
	}
}

func (s *sseStream) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}
