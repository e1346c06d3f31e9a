package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/filings/internal/api"
	"github.com/jackzampolin/filings/internal/extraction"
	"github.com/jackzampolin/filings/internal/store"
	"github.com/jackzampolin/filings/internal/svcctx"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListRecordsResponse is the response for listing records.
type ListRecordsResponse struct {
	Collection string         `json:"collection"`
	Records    []store.Record `json:"records"`
}

// ListRecordsEndpoint handles GET /api/records.
type ListRecordsEndpoint struct{}

func (e *ListRecordsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/records", e.handler
}

func (e *ListRecordsEndpoint) RequiresInit() bool { return true }
func (e *ListRecordsEndpoint) Group() string      { return "records" }

// handler godoc
//
//	@Summary		List records
//	@Description	List stored extraction records, newest first
//	@Tags			records
//	@Produce		json
//	@Param			collection	query		string	false	"Collection (default sec-10k-filings)"
//	@Param			limit		query		int		false	"Max records (default 50, max 500)"
//	@Success		200			{object}	ListRecordsResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Failure		503			{object}	ErrorResponse
//	@Router			/api/records [get]
func (e *ListRecordsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	collection := r.URL.Query().Get("collection")
	if collection == "" {
		collection = extraction.CollectionName
	}

	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := st.List(r.Context(), collection, limit)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	if records == nil {
		records = []store.Record{}
	}

	writeJSON(w, http.StatusOK, ListRecordsResponse{Collection: collection, Records: records})
}

func (e *ListRecordsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var collection string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())

			path := "/api/records"
			params := url.Values{}
			if collection != "" {
				params.Set("collection", collection)
			}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			var resp ListRecordsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "Collection name")
	cmd.Flags().IntVar(&limit, "limit", 0, "Max records to return")
	return cmd
}

// GetRecordEndpoint handles GET /api/records/{id}.
type GetRecordEndpoint struct{}

func (e *GetRecordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/records/{id}", e.handler
}

func (e *GetRecordEndpoint) RequiresInit() bool { return true }
func (e *GetRecordEndpoint) Group() string      { return "records" }

// handler godoc
//
//	@Summary		Get record by ID
//	@Description	Get a stored extraction record
//	@Tags			records
//	@Produce		json
//	@Param			id	path		string	true	"Record ID"
//	@Success		200	{object}	store.Record
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/records/{id} [get]
func (e *GetRecordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	rec, err := st.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (e *GetRecordEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a stored record by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var rec store.Record
			if err := client.Get(cmd.Context(), "/api/records/"+url.PathEscape(args[0]), &rec); err != nil {
				return err
			}
			return api.Output(rec)
		},
	}
}

// DeleteRecordEndpoint handles DELETE /api/records/{id}.
type DeleteRecordEndpoint struct{}

func (e *DeleteRecordEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/records/{id}", e.handler
}

func (e *DeleteRecordEndpoint) RequiresInit() bool { return true }
func (e *DeleteRecordEndpoint) Group() string      { return "records" }

// handler godoc
//
//	@Summary		Delete record
//	@Description	Delete a stored extraction record
//	@Tags			records
//	@Param			id	path	string	true	"Record ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/records/{id} [delete]
func (e *DeleteRecordEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := svcctx.StoreFrom(r.Context())
	if st == nil {
		writeError(w, http.StatusServiceUnavailable, "store not initialized")
		return
	}

	if err := st.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteRecordEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/records/"+url.PathEscape(args[0])); err != nil {
				return err
			}
			fmt.Printf("Deleted record %s\n", args[0])
			return nil
		},
	}
}
