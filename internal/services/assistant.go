package services

import (
	"context"
	"strconv"

	"waitwith/internal/models"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
)

const (
	toolMovieSearch = "movie_search"
	toolTVSearch    = "tv_search"

	systemPrompt = "You are WAITWITH, a helpful agent for shared movie and TV release D-Days. " +
		"Always normalize the title first (fix missing spaces like '28년후' -> '28년 후', " +
		"correct casing, prefer official Korean titles), then call movie_search or tv_search " +
		"whenever the user asks about a release or D-Day. Otherwise answer without tools."
)

// directResolver calls the catalog straight away, treating the whole query
// as a movie title. Used whenever no assistant is configured.
type directResolver struct {
	tmdb *TMDbClient
}

func NewDirectResolver(tmdb *TMDbClient) MediaResolver {
	return &directResolver{tmdb: tmdb}
}

func (r *directResolver) Resolve(ctx context.Context, query string) (*models.ResolvedMediaInfo, error) {
	return r.tmdb.SearchMovie(ctx, models.SearchParams{Title: query})
}

// assistantResolver lets Gemini interpret the query and pick between the
// movie and TV search tools. Any assistant failure falls back to the direct
// lookup; the service works the same with the assistant entirely absent.
type assistantResolver struct {
	model  *genai.GenerativeModel
	tmdb   *TMDbClient
	logger *logrus.Logger
}

func NewAssistantResolver(client *genai.Client, modelName string, tmdb *TMDbClient, logger *logrus.Logger) MediaResolver {
	return &assistantResolver{
		model:  NewToolModel(client, modelName),
		tmdb:   tmdb,
		logger: logger,
	}
}

// NewToolModel configures a Gemini model with the search tool declarations
// and the shared system instruction.
func NewToolModel(client *genai.Client, modelName string) *genai.GenerativeModel {
	model := client.GenerativeModel(modelName)
	model.SetTemperature(0)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	model.Tools = []*genai.Tool{searchTool()}
	return model
}

func searchTool() *genai.Tool {
	regionParams := map[string]*genai.Schema{
		"country":  {Type: genai.TypeString, Description: "ISO 3166-1 region code, e.g. KR"},
		"language": {Type: genai.TypeString, Description: "Language tag, e.g. ko-KR"},
	}

	movieProps := map[string]*genai.Schema{
		"title": {Type: genai.TypeString, Description: "Normalized movie title"},
		"year":  {Type: genai.TypeInteger, Description: "Release year when the user names one"},
	}
	tvProps := map[string]*genai.Schema{
		"title":               {Type: genai.TypeString, Description: "Normalized series title"},
		"first_air_date_year": {Type: genai.TypeInteger, Description: "First air year when the user names one"},
	}
	for name, schema := range regionParams {
		movieProps[name] = schema
		tvProps[name] = schema
	}

	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        toolMovieSearch,
				Description: "Search TMDb for a movie release date and metadata.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: movieProps,
					Required:   []string{"title"},
				},
			},
			{
				Name:        toolTVSearch,
				Description: "Search TMDb for TV series release metadata.",
				Parameters: &genai.Schema{
					Type:       genai.TypeObject,
					Properties: tvProps,
					Required:   []string{"title"},
				},
			},
		},
	}
}

func (r *assistantResolver) Resolve(ctx context.Context, query string) (*models.ResolvedMediaInfo, error) {
	resp, err := r.model.GenerateContent(ctx, genai.Text(query))
	if err != nil {
		r.logger.WithError(err).Warn("Assistant call failed, falling back to direct TMDb lookup")
		return r.tmdb.SearchMovie(ctx, models.SearchParams{Title: query})
	}

	call, ok := firstFunctionCall(resp)
	if !ok {
		r.logger.Info("Assistant returned no tool call, using direct TMDb lookup")
		return r.tmdb.SearchMovie(ctx, models.SearchParams{Title: query})
	}

	return resolveToolCall(ctx, r.tmdb, call, query)
}

// resolveToolCall maps one assistant tool invocation onto the matching
// catalog search. Unknown tool names degrade to a direct movie lookup.
func resolveToolCall(ctx context.Context, tmdb *TMDbClient, call genai.FunctionCall, query string) (*models.ResolvedMediaInfo, error) {
	params := paramsFromArgs(call.Args)
	if params.Title == "" {
		params.Title = query
	}

	switch call.Name {
	case toolMovieSearch:
		return tmdb.SearchMovie(ctx, params)
	case toolTVSearch:
		return tmdb.SearchTV(ctx, params)
	default:
		return tmdb.SearchMovie(ctx, models.SearchParams{Title: query})
	}
}

// paramsFromArgs converts the loosely-typed tool arguments into the typed
// search parameters both call paths share.
func paramsFromArgs(args map[string]any) models.SearchParams {
	params := models.SearchParams{}

	if v, ok := args["title"].(string); ok {
		params.Title = v
	}
	for _, key := range []string{"year", "first_air_date_year"} {
		switch v := args[key].(type) {
		case float64:
			params.Year = int(v)
		case int:
			params.Year = v
		case string:
			if parsed, err := strconv.Atoi(v); err == nil {
				params.Year = parsed
			}
		}
		if params.Year != 0 {
			break
		}
	}
	if v, ok := args["country"].(string); ok {
		params.Region = v
	}
	if v, ok := args["language"].(string); ok {
		params.Language = v
	}
	return params
}

func firstFunctionCall(resp *genai.GenerateContentResponse) (genai.FunctionCall, bool) {
	if resp == nil {
		return genai.FunctionCall{}, false
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if call, ok := part.(genai.FunctionCall); ok && call.Name != "" {
				return call, true
			}
		}
	}
	return genai.FunctionCall{}, false
}
