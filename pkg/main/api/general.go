package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekomata-dev/subdex/pkg/main/apiexternal"
	"github.com/nekomata-dev/subdex/pkg/main/config"
	"github.com/nekomata-dev/subdex/pkg/main/episode"
	"github.com/nekomata-dev/subdex/pkg/main/parser"
)

// AddGeneralRoutes registers every API route on the given group, guarded
// by the api key middleware.
func AddGeneralRoutes(routerapi *gin.RouterGroup) {
	routerapi.Use(checkauth)
	{
		routerapi.GET("/relations", apiRelationsGet)
		routerapi.GET("/relations/date", apiRelationsDate)
		routerapi.POST("/parse", apiParseFilenames)
	}
	addEntryRoutes(routerapi.Group("/entries"))
}

func checkauth(c *gin.Context) {
	apikey := config.GetSettingsGeneral().APIKey
	if apikey == "" {
		c.Next()
		return
	}
	var msg string
	if queryParam, ok := c.GetQuery("apikey"); ok {
		if queryParam == apikey {
			c.Next()
			return
		}
		msg = "wrong apikey in query"
	} else {
		msg = "no apikey in query"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized - " + msg})
}

// apiRelationsGet serves the cached relation table, revalidating against
// the upstream stamp first. With cached=true the in-memory copy is served
// as-is, without touching the upstream.
func apiRelationsGet(ctx *gin.Context) {
	if ctx.Query("cached") == "true" {
		ctx.JSON(http.StatusOK, apiexternal.CachedRelations())
		return
	}
	ctx.JSON(http.StatusOK, apiexternal.CurrentRelations(ctx.Request.Context()))
}

// apiRelationsDate serves only the cache validation stamp, so clients can
// decide whether their copy of the table is stale.
func apiRelationsDate(ctx *gin.Context) {
	doc := apiexternal.CurrentRelations(ctx.Request.Context())
	ctx.JSON(http.StatusOK, gin.H{"last_modified": doc.LastModified})
}

type parseRequest struct {
	Filenames []string `json:"filenames"`
}

type parsedFile struct {
	Filename   string           `json:"filename"`
	Elements   []parser.Element `json:"elements"`
	Episode    episode.Spec     `json:"episode"`
	EpisodeAlt episode.Spec     `json:"episode_alt"`
}

// apiParseFilenames runs the parser and normalizer over submitted names.
func apiParseFilenames(ctx *gin.Context) {
	var req parseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := parser.DefaultOptions()
	out := make([]parsedFile, 0, len(req.Filenames))
	for _, name := range req.Filenames {
		elements := parser.Parse(name, opts)
		out = append(out, parsedFile{
			Filename:   name,
			Elements:   elements,
			Episode:    episode.Normalize(elements),
			EpisodeAlt: episode.NormalizeAlt(elements),
		})
	}
	ctx.JSON(http.StatusOK, gin.H{"data": out})
}
