package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/libris/internal/core/domain"
	"github.com/custodia-labs/libris/internal/core/ports/driving"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string  `json:"query" jsonschema:"the search query to find relevant passages"`
	Collection string  `json:"collection,omitempty" jsonschema:"collection to search (default when omitted)"`
	Limit      int     `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
	MinScore   float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score, 0 to 1"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Name       string  `json:"name"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question   string  `json:"question" jsonschema:"the question to answer from the library"`
	Collection string  `json:"collection,omitempty" jsonschema:"collection to retrieve from (default when omitted)"`
	MaxResults int     `json:"max_results,omitempty" jsonschema:"maximum context chunks to retrieve (default 5)"`
	MinScore   float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score, 0 to 1"`
	Mode       string  `json:"mode,omitempty" jsonschema:"answer mode: generative or extractive (auto when omitted)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer     string               `json:"answer"`
	Generative bool                 `json:"generative"`
	Sources    []SearchResultOutput `json:"sources"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Name        string            `json:"name" jsonschema:"display name for the document"`
	Text        string            `json:"text" jsonschema:"extracted plain text to index"`
	ContentType string            `json:"content_type,omitempty" jsonschema:"MIME type of the original content"`
	Collection  string            `json:"collection,omitempty" jsonschema:"target collection (default when omitted)"`
	Metadata    map[string]string `json:"metadata,omitempty" jsonschema:"metadata stored with the document"`
}

// IngestOutput is the output schema for the ingest tool.
type IngestOutput struct {
	JobID string `json:"job_id"`
}

// JobStatusInput is the input schema for the job status tool.
type JobStatusInput struct {
	JobID string `json:"job_id" jsonschema:"the ingestion job to inspect"`
}

// JobStatusOutput is the output schema for the job status tool.
type JobStatusOutput struct {
	JobID      string `json:"job_id"`
	State      string `json:"state"`
	Progress   int    `json:"progress"`
	DocumentID string `json:"document_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Search the library for passages relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question grounded on library content, with sources",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Index extracted document text into the library (asynchronous)",
	}, s.handleIngest)

	if s.ports.Jobs != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "job_status",
			Description: "Check the state of an ingestion job",
		}, s.handleJobStatus)
	}
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{
		Collection: input.Collection,
		Limit:      input.Limit,
		MinScore:   input.MinScore,
	}
	results, err := s.ports.RAG.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: toResultOutputs(results),
		Count:   len(results),
	}, nil
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	answer, err := s.ports.RAG.Answer(ctx, driving.AnswerRequest{
		Question:   input.Question,
		Collection: input.Collection,
		MaxResults: input.MaxResults,
		MinScore:   input.MinScore,
		Mode:       domain.AnswerMode(input.Mode),
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	return nil, AskOutput{
		Answer:     answer.Text,
		Generative: answer.Generative,
		Sources:    toResultOutputs(answer.Sources),
	}, nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	jobID, err := s.ports.RAG.Ingest(ctx, driving.IngestRequest{
		Name:        input.Name,
		ContentType: input.ContentType,
		Text:        input.Text,
		Metadata:    input.Metadata,
		Collection:  input.Collection,
	})
	if err != nil {
		return nil, IngestOutput{}, err
	}

	return nil, IngestOutput{JobID: jobID}, nil
}

// handleJobStatus handles the job status tool invocation.
func (s *Server) handleJobStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input JobStatusInput,
) (*mcp.CallToolResult, JobStatusOutput, error) {
	status, err := s.ports.Jobs.GetJobStatus(ctx, input.JobID)
	if err != nil {
		return nil, JobStatusOutput{}, err
	}

	return nil, JobStatusOutput{
		JobID:      status.JobID,
		State:      status.State.String(),
		Progress:   status.Progress,
		DocumentID: status.DocumentID,
		Error:      status.Error,
	}, nil
}

// toResultOutputs maps domain search results to the wire schema.
func toResultOutputs(results []domain.SearchResult) []SearchResultOutput {
	out := make([]SearchResultOutput, len(results))
	for i := range results {
		out[i] = SearchResultOutput{
			DocumentID: results[i].Document.ID,
			Name:       results[i].Document.Name,
			ChunkIndex: results[i].Chunk.Index,
			Score:      results[i].Score,
			Text:       results[i].Chunk.Text,
		}
	}
	return out
}
