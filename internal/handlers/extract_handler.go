package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/chapterwise/chapterwise-backend/internal/dto"
	"github.com/chapterwise/chapterwise-backend/internal/extract"
	"github.com/gofiber/fiber/v2"
)

type ExtractHandler struct{}

func NewExtractHandler() *ExtractHandler {
	return &ExtractHandler{}
}

// Extract pulls text from an uploaded PDF, optionally limited to a page
// range. No quota is charged here; the cost is counted when the text is
// submitted for notes generation.
func (h *ExtractHandler) Extract(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "No file uploaded",
		})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read uploaded file",
		})
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to read uploaded file",
		})
	}

	startPage := parsePage(c.FormValue("start_page"), 1)
	endPage := parsePage(c.FormValue("end_page"), 9999)

	text, from, to, err := extract.PDFText(data, startPage, endPage)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidPageRange) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid page range",
			})
		}
		slog.Error("pdf extraction failed", "file", fileHeader.Filename, "error", err)
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to extract text from PDF",
		})
	}

	return c.JSON(dto.ExtractResponse{
		Pages: fmt.Sprintf("%d-%d", from, to),
		Text:  text,
	})
}

func parsePage(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}
