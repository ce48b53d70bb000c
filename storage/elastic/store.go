package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/poiesic/docingest/core"
	"github.com/poiesic/docingest/storage"
)

// DefaultDoctypeField is the document field that carries the doctype name.
const DefaultDoctypeField = "doctype"

// Config holds connection settings for an Elasticsearch cluster.
type Config struct {
	// Addresses lists the cluster nodes, e.g. "http://localhost:9200".
	Addresses []string

	// Username and Password enable basic authentication when set.
	Username string
	Password string

	// APIKey enables API key authentication when set (base64 encoded).
	APIKey string

	// DoctypeField names the document field that records the doctype.
	// Default: DefaultDoctypeField
	DoctypeField string
}

// Store implements storage.Store over the Elasticsearch REST API.
type Store struct {
	client       *elasticsearch.Client
	transport    *http.Transport
	doctypeField string
	logger       *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// NewDialer returns a storage.Dialer that creates a new client per dial and
// verifies the cluster is reachable before returning it.
func NewDialer(cfg Config) storage.Dialer {
	return func(ctx context.Context) (storage.Store, error) {
		return Dial(ctx, cfg)
	}
}

// Dial connects to the cluster described by cfg.
func Dial(ctx context.Context, cfg Config) (*Store, error) {
	if len(cfg.Addresses) == 0 {
		return nil, fmt.Errorf("%w: no addresses configured", storage.ErrUnreachable)
	}
	field := cfg.DoctypeField
	if field == "" {
		field = DefaultDoctypeField
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)
	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", storage.ErrUnreachable, res.Status())
	}

	return &Store{
		client:       client,
		transport:    transport,
		doctypeField: field,
		logger:       slog.Default().With("component", "elastic"),
	}, nil
}

// IndexExists issues HEAD /{index}.
func (s *Store) IndexExists(ctx context.Context, index string) (bool, error) {
	res, err := s.client.Indices.Exists([]string{index}, s.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("%w: index exists %s: %s", storage.ErrRejected, index, res.Status())
	}
}

// CreateIndex issues PUT /{index}.
func (s *Store) CreateIndex(ctx context.Context, index string) error {
	res, err := s.client.Indices.Create(index, s.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)
	if res.IsError() {
		return classify(res, "create index "+index)
	}
	return nil
}

// DeleteIndex issues DELETE /{index}.
func (s *Store) DeleteIndex(ctx context.Context, index string) error {
	res, err := s.client.Indices.Delete([]string{index}, s.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)
	if res.IsError() {
		return classify(res, "delete index "+index)
	}
	return nil
}

// PutMapping issues PUT /{index}/_mapping with the doctype's fields plus the
// doctype keyword field. Elasticsearch answers 400 with an
// illegal_argument_exception or mapper_parsing_exception when a field would
// change type; that is reported as storage.ErrSchemaConflict. Other failures
// are classified like every other request.
func (s *Store) PutMapping(ctx context.Context, index, doctype string, fields map[string]core.FieldSpec) error {
	body, err := json.Marshal(s.mappingBody(fields))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	res, err := s.client.Indices.PutMapping([]string{index}, bytes.NewReader(body),
		s.client.Indices.PutMapping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)
	if !res.IsError() {
		return nil
	}
	reason := readError(res)
	if res.StatusCode == http.StatusBadRequest && isMappingConflict(reason) {
		return fmt.Errorf("%w: doctype %s: %s", storage.ErrSchemaConflict, doctype, reason)
	}
	return classifyReason(res.StatusCode, "put mapping "+doctype, reason)
}

// isMappingConflict reports whether a put-mapping error means the new fields
// are incompatible with the existing mapping.
func isMappingConflict(reason string) bool {
	return strings.HasPrefix(reason, "illegal_argument_exception") ||
		strings.HasPrefix(reason, "mapper_parsing_exception")
}

type property struct {
	Type  core.FieldType `json:"type"`
	Index *bool          `json:"index,omitempty"`
}

func (s *Store) mappingBody(fields map[string]core.FieldSpec) map[string]any {
	properties := make(map[string]property, len(fields)+1)
	for name, spec := range fields {
		p := property{Type: spec.Type}
		if !spec.Indexed {
			indexed := false
			p.Index = &indexed
		}
		properties[name] = p
	}
	properties[s.doctypeField] = property{Type: core.FieldTypeKeyword}
	return map[string]any{"properties": properties}
}

type indexResponse struct {
	ID     string `json:"_id"`
	Result string `json:"result"`
}

// IndexDocument issues POST /{index}/_doc and returns the generated _id.
func (s *Store) IndexDocument(ctx context.Context, index, doctype string, doc core.Document) (string, error) {
	body := make(map[string]any, len(doc)+1)
	for k, v := range doc {
		body[k] = v
	}
	body[s.doctypeField] = doctype

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	res, err := s.client.Index(index, bytes.NewReader(payload), s.client.Index.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrUnreachable, err)
	}
	defer drain(res)
	if res.IsError() {
		return "", classify(res, "index document")
	}

	var ack indexResponse
	if err := json.NewDecoder(res.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("%w: index response: %w", storage.ErrSerializationFailed, err)
	}
	s.logger.Debug("document indexed", "index", index, "doctype", doctype, "id", ack.ID, "result", ack.Result)
	return ack.ID, nil
}

// Close releases the idle connections of this store's transport.
func (s *Store) Close() error {
	s.transport.CloseIdleConnections()
	return nil
}

type errorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
}

func readError(res *esapi.Response) string {
	data, err := io.ReadAll(res.Body)
	if err != nil || len(data) == 0 {
		return res.Status()
	}
	var e errorResponse
	if err := json.Unmarshal(data, &e); err != nil || e.Error.Type == "" {
		return strings.TrimSpace(string(data))
	}
	return e.Error.Type + ": " + e.Error.Reason
}

func classify(res *esapi.Response, op string) error {
	return classifyReason(res.StatusCode, op, readError(res))
}

func classifyReason(status int, op, reason string) error {
	var sentinel error
	switch {
	case status == http.StatusNotFound:
		sentinel = storage.ErrIndexNotFound
	case strings.Contains(reason, "resource_already_exists_exception"):
		sentinel = storage.ErrIndexExists
	default:
		sentinel = storage.ErrRejected
	}
	return fmt.Errorf("%w: %s: %s", sentinel, op, reason)
}

func drain(res *esapi.Response) {
	if res == nil || res.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, res.Body)
	if err := res.Body.Close(); err != nil && !errors.Is(err, io.EOF) {
		slog.Debug("closing elasticsearch response body", "err", err)
	}
}
