// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/bugdex/middleware"
	"github.com/danielhkuo/bugdex/models"
)

const maxIPFSUpload = 10 << 20

type IPFSHandler struct {
	content ContentStore
}

func NewIPFSHandler(content ContentStore) *IPFSHandler {
	return &IPFSHandler{content: content}
}

// Upload handles POST /api/ipfs/upload
// Accepts a multipart "file" field (images) or a raw JSON document (metadata)
func (h *IPFSHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.content == nil {
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "IPFS is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxIPFSUpload+1<<20)

	var data []byte
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Upload exceeds 10 MiB")
			return
		}
		if !json.Valid(raw) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		data = raw
	} else {
		file, header, err := r.FormFile("file")
		if err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "multipart field \"file\" is required")
			return
		}
		defer file.Close()

		if header.Size > maxIPFSUpload {
			middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Upload exceeds 10 MiB")
			return
		}
		data, err = io.ReadAll(io.LimitReader(file, maxIPFSUpload+1))
		if err != nil {
			slog.Error("failed to read upload", "error", err)
			middleware.ErrorResponse(w, http.StatusBadRequest, "Failed to read file")
			return
		}
	}

	if len(data) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Upload is empty")
		return
	}
	if len(data) > maxIPFSUpload {
		middleware.ErrorResponse(w, http.StatusRequestEntityTooLarge, "Upload exceeds 10 MiB")
		return
	}

	cid, err := h.content.Add(r.Context(), data)
	if err != nil {
		slog.Error("failed to add content to IPFS", "error", err, "size", len(data))
		middleware.ErrorResponse(w, http.StatusBadGateway, "Failed to store content on IPFS")
		return
	}

	slog.Info("content pinned", "cid", cid, "size", len(data))

	middleware.JSONResponse(w, http.StatusCreated, models.IPFSUploadResponse{
		CID: cid,
		URL: h.content.GatewayURL(cid),
	})
}
