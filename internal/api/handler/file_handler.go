package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/inkforge/tattoo-pipeline/internal/api/dto"
)

const defaultURLExpiry = 3600

// ListFiles handles GET /files/
// Lists stored objects. folder defaults to the input folder; prefix narrows
// the listing (e.g. prefix=result_ over the output folder).
func (h *Handler) ListFiles(c *gin.Context) {
	folder := c.DefaultQuery("folder", h.inputFolder)
	prefix := c.Query("prefix")

	files, err := h.store.List(c.Request.Context(), folder, prefix)
	if err != nil {
		h.logger.Error("Failed to list files",
			slog.String("folder", folder),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list files",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FileListResponse{
		Folder: folder,
		Count:  len(files),
		Files:  files,
	})
}

// GetFileURL handles GET /files/:folder/:filename
// Returns a presigned download URL for one object. expires is in seconds.
func (h *Handler) GetFileURL(c *gin.Context) {
	folder := c.Param("folder")
	filename := c.Param("filename")

	expires := defaultURLExpiry
	if raw := c.Query("expires"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "expires must be a positive number of seconds",
			})
			return
		}
		expires = parsed
	}

	exists, err := h.store.Exists(c.Request.Context(), folder, filename)
	if err != nil {
		h.logger.Error("Failed to check object",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check file",
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "File not found: " + filename,
		})
		return
	}

	url, err := h.store.PresignedURL(c.Request.Context(), folder, filename, time.Duration(expires)*time.Second)
	if err != nil {
		h.logger.Error("Failed to presign URL",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to generate download URL",
		})
		return
	}

	c.JSON(http.StatusOK, dto.FileURLResponse{
		Folder:    folder,
		Filename:  filename,
		URL:       url,
		ExpiresIn: expires,
	})
}

// DeleteFile handles DELETE /files/:folder/:filename
func (h *Handler) DeleteFile(c *gin.Context) {
	folder := c.Param("folder")
	filename := c.Param("filename")

	exists, err := h.store.Exists(c.Request.Context(), folder, filename)
	if err != nil {
		h.logger.Error("Failed to check object",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to check file",
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "File not found: " + filename,
		})
		return
	}

	if err := h.store.Delete(c.Request.Context(), folder, filename); err != nil {
		h.logger.Error("Failed to delete object",
			slog.String("folder", folder),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to delete file",
		})
		return
	}

	h.logger.Info("File deleted",
		slog.String("folder", folder),
		slog.String("filename", filename),
	)

	c.JSON(http.StatusOK, gin.H{
		"status":   "deleted",
		"folder":   folder,
		"filename": filename,
	})
}
