package scanner

import (
	"context"
	"fmt"
	"runtime/debug"

	apperrors "imagefingerprint/errors"
	"imagefingerprint/logging"
	"imagefingerprint/types"

	"github.com/sirupsen/logrus"
)

// TaskType names the kind of work a worker is asked to do
type TaskType string

const (
	TaskProcessImage      TaskType = "processImage"
	TaskGenerateThumbnail TaskType = "generateThumbnail"
	TaskExtractMetadata   TaskType = "extractMetadata"
	TaskCalculateHash     TaskType = "calculateHash"
)

// ParseTaskType maps a task name to its TaskType
func ParseTaskType(name string) (TaskType, error) {
	switch TaskType(name) {
	case TaskProcessImage, TaskGenerateThumbnail, TaskExtractMetadata, TaskCalculateHash:
		return TaskType(name), nil
	}
	return "", fmt.Errorf("%w: %q", apperrors.ErrUnknownTask, name)
}

// Task is one of ProcessImageTask, GenerateThumbnailTask, ExtractMetadataTask
// or CalculateHashTask.
type Task interface {
	Type() TaskType
	Path() string
	task()
}

// ProcessImageTask runs the full fingerprint pipeline for one item
type ProcessImageTask struct {
	Item types.WorkItem
}

// GenerateThumbnailTask regenerates only the thumbnail
type GenerateThumbnailTask struct {
	ImagePath string
}

// ExtractMetadataTask reads only the decoded-format attributes
type ExtractMetadataTask struct {
	ImagePath string
}

// CalculateHashTask recomputes only the hash channels
type CalculateHashTask struct {
	ImagePath string
}

func (t ProcessImageTask) Type() TaskType      { return TaskProcessImage }
func (t GenerateThumbnailTask) Type() TaskType { return TaskGenerateThumbnail }
func (t ExtractMetadataTask) Type() TaskType   { return TaskExtractMetadata }
func (t CalculateHashTask) Type() TaskType     { return TaskCalculateHash }

func (t ProcessImageTask) Path() string      { return t.Item.Path }
func (t GenerateThumbnailTask) Path() string { return t.ImagePath }
func (t ExtractMetadataTask) Path() string   { return t.ImagePath }
func (t CalculateHashTask) Path() string     { return t.ImagePath }

func (ProcessImageTask) task()      {}
func (GenerateThumbnailTask) task() {}
func (ExtractMetadataTask) task()   {}
func (CalculateHashTask) task()     {}

// NewTask builds the task of the given type for path
func NewTask(taskType TaskType, path string) (Task, error) {
	switch taskType {
	case TaskProcessImage:
		return ProcessImageTask{Item: types.WorkItem{Path: path}}, nil
	case TaskGenerateThumbnail:
		return GenerateThumbnailTask{ImagePath: path}, nil
	case TaskExtractMetadata:
		return ExtractMetadataTask{ImagePath: path}, nil
	case TaskCalculateHash:
		return CalculateHashTask{ImagePath: path}, nil
	}
	return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownTask, taskType)
}

// Request is a message from the orchestrator to a worker
type Request struct {
	ID   int
	Task Task
}

// Response is a worker's answer. Exactly one result field is set on success.
type Response struct {
	ID          int
	TaskType    TaskType
	Path        string
	Success     bool
	Fingerprint *types.ImageFingerprint
	Thumbnail   []byte
	Metadata    *types.ImageMetadata
	Hashes      *types.Hashes
	Err         error
}

// Engine is the per-image computation a worker delegates to.
// *imageprocessor.Fingerprinter implements it.
type Engine interface {
	ComputeFingerprint(ctx context.Context, path string, opts types.ItemOptions) (types.ImageFingerprint, error)
	GenerateThumbnail(ctx context.Context, path string) ([]byte, error)
	ExtractMetadata(ctx context.Context, path string) (types.ImageMetadata, error)
	CalculateHashes(ctx context.Context, path string) (types.Hashes, error)
}

// Worker executes one request at a time. It keeps no state between requests.
type Worker struct {
	ID     int
	engine Engine
}

// NewWorker creates a worker backed by engine
func NewWorker(id int, engine Engine) *Worker {
	return &Worker{ID: id, engine: engine}
}

// Handle runs a request. A panic inside the engine is returned as a
// WorkerFault response instead of crashing the pool.
func (w *Worker) Handle(ctx context.Context, req Request) (resp Response) {
	resp = Response{ID: req.ID}
	if req.Task != nil {
		resp.TaskType = req.Task.Type()
		resp.Path = req.Task.Path()
	}

	defer func() {
		if r := recover(); r != nil {
			logging.WithFields(logrus.Fields{
				"worker": w.ID,
				"path":   resp.Path,
				"task":   resp.TaskType,
			}).Errorf("Worker panic: %v\n%s", r, debug.Stack())
			resp = Response{
				ID:       req.ID,
				TaskType: resp.TaskType,
				Path:     resp.Path,
				Err:      apperrors.NewWorkerFault(resp.Path, r),
			}
		}
	}()

	switch t := req.Task.(type) {
	case ProcessImageTask:
		fp, err := w.engine.ComputeFingerprint(ctx, t.Item.Path, t.Item.Options)
		if err != nil {
			resp.Err = err
			return resp
		}
		if t.Item.Name != "" {
			fp.Name = t.Item.Name
		}
		resp.Fingerprint = &fp

	case GenerateThumbnailTask:
		thumb, err := w.engine.GenerateThumbnail(ctx, t.ImagePath)
		if err != nil {
			resp.Err = err
			return resp
		}
		resp.Thumbnail = thumb

	case ExtractMetadataTask:
		meta, err := w.engine.ExtractMetadata(ctx, t.ImagePath)
		if err != nil {
			resp.Err = err
			return resp
		}
		resp.Metadata = &meta

	case CalculateHashTask:
		hashes, err := w.engine.CalculateHashes(ctx, t.ImagePath)
		if err != nil {
			resp.Err = err
			return resp
		}
		resp.Hashes = &hashes

	default:
		resp.Err = apperrors.New(apperrors.CategoryInput, "dispatch", resp.Path, apperrors.ErrUnknownTask)
		return resp
	}

	resp.Success = true
	return resp
}
