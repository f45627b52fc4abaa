package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/nekomata-dev/subdex/pkg/main/apiexternal"
	"github.com/nekomata-dev/subdex/pkg/main/config"
	"github.com/nekomata-dev/subdex/pkg/main/database"
	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/nekomata-dev/subdex/pkg/main/progress"
	"github.com/nekomata-dev/subdex/pkg/main/rename"
	"github.com/nekomata-dev/subdex/pkg/main/scanner"
)

func addEntryRoutes(router *gin.RouterGroup) {
	router.GET("/search", apiEntrySearch)
	router.GET("/anilist/:anilist_id", apiEntryByAniList)
	router.POST("", apiEntryCreate)
	router.GET("/:id", apiEntryGet)
	router.GET("/:id/files", apiEntryFiles)
	router.GET("/:id/audit", apiEntryAudit)
	router.POST("/:id/filter", apiEntryFilter)
	router.POST("/:id/rename/preview", apiEntryRenamePreview)
	router.POST("/:id/rename", apiEntryRename)
	router.POST("/:id/download", apiEntryDownload)
	router.DELETE("/:id/files", apiEntryDeleteFiles)
	router.POST("/:id/move", apiEntryMove)
	router.POST("/:id/report", apiEntryReport)
}

// entryFromParam resolves the :id route parameter. On failure the
// response is already written.
func entryFromParam(ctx *gin.Context) (*database.DirectoryEntry, bool) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry id"})
		return nil, false
	}
	entry, err := database.GetEntry(id)
	if errors.Is(err, logger.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return nil, false
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return entry, true
}

func entryDir(entry *database.DirectoryEntry) string {
	return database.EntryDir(config.GetSettingsGeneral().StorageRoot, entry.ID)
}

// selectedFiles returns the request's file selection, falling back to the
// whole directory listing when the selection is empty.
func selectedFiles(entry *database.DirectoryEntry, requested []string) ([]string, error) {
	if len(requested) != 0 {
		return requested, nil
	}
	listing, err := database.ListEntryFiles(entryDir(entry))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(listing))
	for idx := range listing {
		names = append(names, listing[idx].Name)
	}
	return names, nil
}

func apiEntrySearch(ctx *gin.Context) {
	entries, err := database.SearchEntries(ctx.Query("query"), 50)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": entries})
}

// apiEntryByAniList resolves the entry bound to an AniList id, so
// clients holding only the upstream id can find the directory.
func apiEntryByAniList(ctx *gin.Context) {
	anilistID, err := strconv.ParseInt(ctx.Param("anilist_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid anilist id"})
		return
	}
	entry, err := database.GetEntryByAniListID(anilistID)
	if errors.Is(err, logger.ErrNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, entry)
}

type entryCreateRequest struct {
	Name         string `json:"name" binding:"required"`
	JapaneseName string `json:"japanese_name"`
	EnglishName  string `json:"english_name"`
	AniListID    int64  `json:"anilist_id"`
	TmdbID       string `json:"tmdb_id"`
	Flags        uint32 `json:"flags"`
	Notes        string `json:"notes"`
}

func apiEntryCreate(ctx *gin.Context) {
	var req entryCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry := &database.DirectoryEntry{
		Name:         req.Name,
		JapaneseName: req.JapaneseName,
		EnglishName:  req.EnglishName,
		AniListID:    req.AniListID,
		TmdbID:       req.TmdbID,
		Flags:        database.DirectoryFlags(req.Flags),
		Notes:        req.Notes,
	}
	id, err := database.InsertEntry(entry)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if row, err := database.NewAudit(id, database.AuditCreateEntry, gin.H{"name": req.Name}); err == nil {
		if err := database.InsertAudit(row); err != nil {
			logger.LogDynamicany(logger.StrWarn, "audit insert failed", "err", err)
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"data": entry})
}

func apiEntryGet(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": entry})
}

func apiEntryFiles(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	files, err := database.ListEntryFiles(entryDir(entry))
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": files})
}

func apiEntryAudit(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	rows, err := database.QueryAuditForEntry(entry.ID, 100)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": rows})
}

type filterRequest struct {
	Files    []string       `json:"files"`
	Progress progress.State `json:"progress"`
}

// apiEntryFilter classifies the entry's files against the caller's watch
// progress, using the entry's AniList binding for relation lookups.
func apiEntryFilter(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	var req filterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	files, err := selectedFiles(entry, req.Files)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	doc := apiexternal.CurrentRelations(ctx.Request.Context())
	visibility, aggregates := progress.Classify(files, req.Progress, entry.AniListID, doc)
	ctx.JSON(http.StatusOK, gin.H{"data": visibility, "aggregates": aggregates})
}

type renameRequest struct {
	Files         []string             `json:"files"`
	Search        string               `json:"search"`
	IsRegex       bool                 `json:"is_regex"`
	CaseSensitive bool                 `json:"case_sensitive"`
	MatchAll      bool                 `json:"match_all"`
	Replacement   string               `json:"replacement"`
	Scope         rename.Scope         `json:"scope"`
	CaseTransform rename.CaseTransform `json:"case_transform"`
}

// compileRename binds and compiles a rename request. An invalid regular
// expression is the one validation error surfaced to the search field.
func compileRename(ctx *gin.Context, entry *database.DirectoryEntry) (*rename.Rule, *renameRequest, []string, bool) {
	var req renameRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, nil, nil, false
	}

	rule, err := rename.Compile(req.Search, req.IsRegex, req.CaseSensitive, req.MatchAll, req.Replacement)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": "search"})
		return nil, nil, nil, false
	}

	files, err := selectedFiles(entry, req.Files)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, nil, nil, false
	}
	return rule, &req, files, true
}

func apiEntryRenamePreview(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	rule, req, files, ok := compileRename(ctx, entry)
	if !ok {
		return
	}
	preview := rule.Preview(files, req.Scope, req.CaseTransform)
	ctx.JSON(http.StatusOK, gin.H{"data": preview})
}

func apiEntryRename(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	rule, req, files, ok := compileRename(ctx, entry)
	if !ok {
		return
	}

	plan := rule.Apply(files, req.Scope, req.CaseTransform)
	res := scanner.ExecutePlan(entryDir(entry), plan)

	if res.Success > 0 {
		if err := database.TouchEntry(entry.ID); err != nil {
			logger.LogDynamicany(logger.StrWarn, "touch entry failed", logger.StrEntry, entry.ID, "err", err)
		}
	}
	if row, err := database.NewAudit(entry.ID, database.AuditRename, res); err == nil {
		if err := database.InsertAudit(row); err != nil {
			logger.LogDynamicany(logger.StrWarn, "audit insert failed", "err", err)
		}
	}
	ctx.JSON(http.StatusOK, res)
}

type downloadRequest struct {
	Files []string `json:"files"`
}

// apiEntryDownload streams the selected files as a zip archive.
func apiEntryDownload(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	var req downloadRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files, err := selectedFiles(entry, req.Files)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	name := database.SanitizeEntryName(entry.Name)
	if name == "" {
		name = strconv.FormatInt(entry.ID, 10)
	}
	ctx.Header("Content-Type", "application/zip")
	ctx.Header("Content-Disposition", `attachment; filename="`+name+`.zip"`)
	if err := scanner.ZipFiles(ctx.Writer, entryDir(entry), files); err != nil {
		logger.LogDynamicany(logger.StrError, "archive stream failed", logger.StrEntry, entry.ID, "err", err)
	}
}

type deleteRequest struct {
	Files        []string `json:"files"`
	Reason       string   `json:"reason"`
	DeleteParent bool     `json:"delete_parent"`
}

func apiEntryDeleteFiles(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	var req deleteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var res scanner.OpResult
	if req.DeleteParent {
		if err := scanner.DeleteEntryDir(entryDir(entry)); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if err := database.DeleteEntry(entry.ID); err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		// The entry itself counts even when no files were selected.
		res.Success = len(req.Files)
		if res.Success == 0 {
			res.Success = 1
		}
	} else {
		res = scanner.DeleteFiles(entryDir(entry), req.Files)
	}

	payload := gin.H{"files": req.Files, "reason": req.Reason, "delete_parent": req.DeleteParent}
	if req.DeleteParent {
		payload["name"] = entry.Name
	}
	if row, err := database.NewAudit(entry.ID, database.AuditDeleteFiles, payload); err == nil {
		if err := database.InsertAudit(row); err != nil {
			logger.LogDynamicany(logger.StrWarn, "audit insert failed", "err", err)
		}
	}
	ctx.JSON(http.StatusOK, res)
}

type moveRequest struct {
	Files   []string `json:"files" binding:"required"`
	EntryID int64    `json:"entry_id" binding:"required"`
}

func apiEntryMove(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	var req moveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := database.GetEntry(req.EntryID)
	if errors.Is(err, logger.ErrNotFound) {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "target entry not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	res := scanner.MoveFiles(entryDir(entry), entryDir(target), req.Files)
	if res.Success > 0 {
		for _, id := range []int64{entry.ID, target.ID} {
			if err := database.TouchEntry(id); err != nil {
				logger.LogDynamicany(logger.StrWarn, "touch entry failed", logger.StrEntry, id, "err", err)
			}
		}
	}

	payload := gin.H{"files": req.Files, "target": target.ID}
	if row, err := database.NewAudit(entry.ID, database.AuditMove, payload); err == nil {
		if err := database.InsertAudit(row); err != nil {
			logger.LogDynamicany(logger.StrWarn, "audit insert failed", "err", err)
		}
	}
	ctx.JSON(http.StatusOK, res)
}

type reportRequest struct {
	Reason string   `json:"reason" binding:"required"`
	Files  []string `json:"files"`
}

// apiEntryReport records a moderation report as an audit row.
func apiEntryReport(ctx *gin.Context) {
	entry, ok := entryFromParam(ctx)
	if !ok {
		return
	}
	var req reportRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	row, err := database.NewAudit(entry.ID, database.AuditReport, gin.H{"reason": req.Reason, "files": req.Files})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := database.InsertAudit(row); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"data": row.ID})
}
