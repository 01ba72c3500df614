package library

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/standardbeagle/relink/internal/document"
)

const requestTimeout = 10 * time.Second

// variablePayload is the service's representation of one published
// variable.
type variablePayload struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Key          string `json:"key"`
	Type         string `json:"type"`
	CollectionID string `json:"collectionId"`
	LibraryName  string `json:"libraryName"`
}

// Client activates published variables over HTTP. It implements
// document.Importer, so a variable store can be pointed straight at a
// team service.
type Client struct {
	httpc   *resty.Client
	catalog *Catalog
	log     hclog.Logger
}

func NewClient(baseURL string, catalog *Catalog, log hclog.Logger) *Client {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	httpc := resty.New()
	httpc.SetBaseURL(baseURL)
	httpc.SetTimeout(requestTimeout)
	httpc.SetHeader("Accept", "application/json")
	return &Client{httpc: httpc, catalog: catalog, log: log}
}

// ImportVariable fetches the published variable behind v's key and
// returns the activated copy. Failure means the team cannot serve the
// variable right now; callers classify, they do not retry.
func (c *Client) ImportVariable(ctx context.Context, v *document.Variable) (*document.Variable, error) {
	if v == nil || v.Key == "" {
		return nil, fmt.Errorf("variable has no publish key")
	}
	if !c.catalog.Enabled(v.LibraryName) {
		return nil, fmt.Errorf("library %q is not enabled", v.LibraryName)
	}

	var payload variablePayload
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetPathParam("key", v.Key).
		SetResult(&payload).
		Get("/api/v1/variables/{key}")
	if err != nil {
		return nil, fmt.Errorf("fetch variable %s: %w", v.Key, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("variable key %s is not published", v.Key)
	default:
		return nil, fmt.Errorf("%d fetching variable %s", resp.StatusCode(), v.Key)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("service returned no id for variable key %s", v.Key)
	}

	imported := &document.Variable{
		ID:           payload.ID,
		Name:         payload.Name,
		Key:          payload.Key,
		Type:         document.VariableType(payload.Type),
		CollectionID: payload.CollectionID,
		Remote:       true,
		LibraryName:  payload.LibraryName,
	}
	if imported.Name == "" {
		imported.Name = v.Name
	}
	if imported.Key == "" {
		imported.Key = v.Key
	}
	if imported.Type == "" {
		imported.Type = v.Type
	}
	if imported.LibraryName == "" {
		imported.LibraryName = v.LibraryName
	}
	c.log.Debug("variable activated", "key", imported.Key, "id", imported.ID, "library", imported.LibraryName)
	return imported, nil
}
