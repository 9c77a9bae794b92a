package handler

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/spark/internal/ai"
	"github.com/xxxsen/spark/internal/pkg/errcode"
	"github.com/xxxsen/spark/internal/pkg/response"
	"github.com/xxxsen/spark/internal/service"
)

const maxTopK = 50

type BlockService interface {
	Ingest(ctx context.Context, req service.IngestRequest) (*service.BlockView, error)
	Create(ctx context.Context, req service.IngestRequest) (*service.BlockView, error)
	Process(ctx context.Context, id string, media *ai.Media) (*service.BlockView, error)
	CorpusDimension(ctx context.Context) int
	Get(ctx context.Context, id string) (*service.BlockView, error)
	List(ctx context.Context) []*service.BlockView
	Corpus(ctx context.Context) []*service.BlockView
	Related(ctx context.Context, id string, topK int) ([]service.RelatedView, error)
	AddUserTags(ctx context.Context, id string, tags []string) (*service.BlockView, error)
}

type BlockHandler struct {
	blocks BlockService
	topK   int
}

func NewBlockHandler(blocks BlockService, defaultTopK int) *BlockHandler {
	return &BlockHandler{blocks: blocks, topK: defaultTopK}
}

type createBlockRequest struct {
	SourceKind  string         `json:"source_kind"`
	RawContent  string         `json:"raw_content"`
	Metadata    map[string]any `json:"metadata"`
	MediaBase64 string         `json:"media_base64"`
	MediaMIME   string         `json:"media_mime"`
}

type processBlockRequest struct {
	MediaBase64 string `json:"media_base64"`
	MediaMIME   string `json:"media_mime"`
}

type userTagsRequest struct {
	Tags []string `json:"tags"`
}

// Create ingests a block. With ?process=false the block is only registered
// and stays pending until POST /blocks/:id/process.
func (h *BlockHandler) Create(c *gin.Context) {
	process, err := strconv.ParseBool(c.DefaultQuery("process", "true"))
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid process flag")
		return
	}
	var req createBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	media, err := decodeMedia(req.MediaBase64, req.MediaMIME)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid media")
		return
	}
	in := service.IngestRequest{
		SourceKind: req.SourceKind,
		RawContent: req.RawContent,
		Metadata:   req.Metadata,
		Media:      media,
	}
	var view *service.BlockView
	if process {
		view, err = h.blocks.Ingest(c.Request.Context(), in)
	} else {
		view, err = h.blocks.Create(c.Request.Context(), in)
	}
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *BlockHandler) Process(c *gin.Context) {
	var req processBlockRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, errcode.ErrInvalid, "invalid request")
			return
		}
	}
	media, err := decodeMedia(req.MediaBase64, req.MediaMIME)
	if err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid media")
		return
	}
	view, err := h.blocks.Process(c.Request.Context(), c.Param("id"), media)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func decodeMedia(data, mime string) (*ai.Media, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = "application/octet-stream"
	}
	return &ai.Media{MIMEType: mime, Data: raw}, nil
}

func (h *BlockHandler) List(c *gin.Context) {
	response.Success(c, gin.H{"items": h.blocks.List(c.Request.Context())})
}

func (h *BlockHandler) Get(c *gin.Context) {
	view, err := h.blocks.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *BlockHandler) Corpus(c *gin.Context) {
	ctx := c.Request.Context()
	response.Success(c, gin.H{
		"items":     h.blocks.Corpus(ctx),
		"dimension": h.blocks.CorpusDimension(ctx),
	})
}

func (h *BlockHandler) Related(c *gin.Context) {
	topK := h.topK
	if raw := c.Query("top_k"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > maxTopK {
			response.Error(c, errcode.ErrInvalid, "invalid top_k")
			return
		}
		topK = v
	}
	items, err := h.blocks.Related(c.Request.Context(), c.Param("id"), topK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *BlockHandler) AddUserTags(c *gin.Context) {
	var req userTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	view, err := h.blocks.AddUserTags(c.Request.Context(), c.Param("id"), req.Tags)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}
