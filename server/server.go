package server

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"nz_propper/config"
	"nz_propper/ingest"
	"nz_propper/models"
	"nz_propper/pricing"
)

const previewRows = 10

// Archiver stores a copy of an uploaded spreadsheet. Optional; archive
// failures are logged and never fail the request.
type Archiver interface {
	Archive(ctx context.Context, filename string, data io.Reader) (string, error)
}

type Server struct {
	engine      *pricing.Engine
	archiver    Archiver
	concurrency int
	maxUpload   int64
}

func New(cfg *config.ServerConfig, engine *pricing.Engine, archiver Archiver) *Server {
	concurrency := cfg.CalcConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Server{
		engine:      engine,
		archiver:    archiver,
		concurrency: concurrency,
		maxUpload:   cfg.MaxUploadMB << 20,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))
	router.MaxMultipartMemory = s.maxUpload

	router.GET("/api/health", s.health)
	router.POST("/api/upload", s.upload)
	router.POST("/api/calculate", s.calculate)

	return router
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "NZ PROPPER API",
	})
}

// upload parses the spreadsheet and returns a preview without running any
// calculations, so the frontend can show what it is about to process.
func (s *Server) upload(c *gin.Context) {
	filename, data, ok := s.readUpload(c)
	if !ok {
		return
	}

	records, err := ingest.ParseListings(data, filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.archive(c.Request.Context(), filename, data)

	preview := records
	if len(preview) > previewRows {
		preview = preview[:previewRows]
	}
	c.JSON(http.StatusOK, gin.H{
		"filename":   filename,
		"total_rows": len(records),
		"preview":    preview,
	})
}

func (s *Server) calculate(c *gin.Context) {
	filename, data, ok := s.readUpload(c)
	if !ok {
		return
	}

	records, err := ingest.ParseListings(data, filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.archive(c.Request.Context(), filename, data)

	records, removed := ingest.Dedupe(records)
	results := s.calculateAll(c.Request.Context(), records)

	resp := models.ProcessResponse{
		Results:           results,
		TotalProperties:   len(results),
		DuplicatesRemoved: removed,
	}
	for _, r := range results {
		if r.IsGoodDeal {
			resp.GoodDealsCount++
		}
		if r.HasStressKeywords {
			resp.StressSalesCount++
		}
	}

	c.JSON(http.StatusOK, resp)
}

// calculateAll prices every record with bounded concurrency, preserving
// input order. Calculate never errors, so the group never aborts.
func (s *Server) calculateAll(ctx context.Context, records []models.ListingRecord) []*models.CalculationResult {
	results := make([]*models.CalculationResult, len(records))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range records {
		i := i
		g.Go(func() error {
			results[i] = s.engine.Calculate(ctx, &records[i])
			return nil
		})
	}
	g.Wait()

	return results
}

func (s *Server) readUpload(c *gin.Context) (string, []byte, bool) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return "", nil, false
	}
	if fileHeader.Size > s.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return "", nil, false
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return "", nil, false
	}
	return fileHeader.Filename, data, true
}

func (s *Server) archive(ctx context.Context, filename string, data []byte) {
	if s.archiver == nil {
		return
	}
	key, err := s.archiver.Archive(ctx, filename, bytes.NewReader(data))
	if err != nil {
		log.Printf("[server] upload archive failed for %s: %v", filename, err)
		return
	}
	log.Printf("[server] archived upload %s as %s", filename, key)
}
