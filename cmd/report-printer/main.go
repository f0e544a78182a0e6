package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
	"github.com/Lllllllleong/reportprinter/internal/logging"
	"github.com/Lllllllleong/reportprinter/internal/models"
	"github.com/Lllllllleong/reportprinter/internal/services"
)

// reportProcessor is the part of the service the handlers call.
type reportProcessor interface {
	Process(ctx context.Context, req *models.PrintReportRequest) (*models.PrintReportResponse, error)
}

var (
	printerInstance reportProcessor
	once            sync.Once
	initErr         error
)

func init() {
	// --- Set up structured logging ---
	logger, _ := logging.New(os.Stdout, gcp.GetEnv("LOG_FILE", ""), gcp.GetEnv("LOG_LEVEL", "info"))
	slog.SetDefault(logger)

	functions.HTTP("HandlePrintReport", handlePrintReport)
	functions.CloudEvent("PrintReportEvent", printReportEvent)
}

// main is required by the Go Functions Framework.
func main() {}

func getInstance() (reportProcessor, error) {
	once.Do(func() {
		printerInstance, initErr = services.NewReportPrinter(context.Background())
	})
	return printerInstance, initErr
}

// handlePrintReport runs one report for a JSON {topic, printer} body.
func handlePrintReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	instance, err := getInstance()
	if err != nil {
		slog.Error("CRITICAL: Report printer initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.PrintReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := instance.Process(r.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			http.Error(w, "Bad Request: "+err.Error(), http.StatusBadRequest)
			return
		}
		// The specific error is already logged inside the Process method.
		http.Error(w, "Internal Server Error: processing failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// pubSubMessage is the payload of a Pub/Sub CloudEvent. Data holds the JSON
// request and arrives base64 encoded.
type pubSubMessage struct {
	Message struct {
		Data []byte `json:"data"`
	} `json:"message"`
}

func decodeEventRequest(e cloudevents.Event) (*models.PrintReportRequest, error) {
	var msg pubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return nil, fmt.Errorf("event.DataAs: %w", err)
	}
	var req models.PrintReportRequest
	if err := json.Unmarshal(msg.Message.Data, &req); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}
	return &req, nil
}

// printReportEvent runs one report for a Pub/Sub message.
func printReportEvent(ctx context.Context, e cloudevents.Event) error {
	instance, err := getInstance()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	req, err := decodeEventRequest(e)
	if err != nil {
		// A malformed message never decodes, so it is acknowledged and dropped.
		slog.Error("Dropping undecodable event.", "error", err, "eventId", e.ID(), "data", string(e.Data()))
		return nil
	}

	res, err := instance.Process(ctx, req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidRequest) {
			// Redelivery will not fix a bad message.
			slog.Error("Dropping invalid report request.", "error", err, "eventId", e.ID())
			return nil
		}
		return err
	}
	slog.Info("Report event processed.", "eventId", e.ID(), "runId", res.RunID, "status", res.Status)
	return nil
}
