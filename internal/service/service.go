package service

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"next-nav-server/internal/config"
	"next-nav-server/internal/errors"
	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/lock"
	"next-nav-server/internal/logging"
	"next-nav-server/internal/metrics"
	"next-nav-server/internal/models"
	"next-nav-server/internal/session"
	"next-nav-server/internal/tree"
	"next-nav-server/internal/workspace"
)

const (
	filePerm = 0o644
	dirPerm  = 0o755
)

// TreeBuilder builds the directory tree of an already validated directory.
type TreeBuilder interface {
	Build(rootDir string) (tree.Tree, error)
}

// NavigatorService defines the operations behind every transport.
type NavigatorService interface {
	SubmitDir(sess *session.Session, req models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail)
	GetTree(sess *session.Session) (*models.SendStringResponse, *models.ErrorDetail)
	BuildTree(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail)
	OpenFile(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail)
	AddFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	AddFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	Workspace() string
}

// DefaultNavigatorService implements the NavigatorService interface.
type DefaultNavigatorService struct {
	fsAdapter   filesystem.FileSystemAdapter
	lockManager lock.LockManagerInterface
	builder     TreeBuilder
	validator   *workspace.Validator
	maxFileSize int64 // in bytes
	opTimeout   time.Duration
	trashDir    string
	logger      *zap.Logger
}

// NewDefaultNavigatorService creates a new DefaultNavigatorService.
func NewDefaultNavigatorService(
	fs filesystem.FileSystemAdapter,
	lm lock.LockManagerInterface,
	builder TreeBuilder,
	cfg *config.Config,
) (*DefaultNavigatorService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if fs == nil {
		return nil, fmt.Errorf("filesystem adapter is required")
	}
	if lm == nil {
		return nil, fmt.Errorf("lock manager is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("tree builder is required")
	}

	validator, err := workspace.NewValidator(fs, cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	trashDir := cfg.TrashDir
	if trashDir != "" {
		if trashDir, err = filepath.Abs(trashDir); err != nil {
			return nil, fmt.Errorf("could not get absolute path for trash directory: %w", err)
		}
	}

	return &DefaultNavigatorService{
		fsAdapter:   fs,
		lockManager: lm,
		builder:     builder,
		validator:   validator,
		maxFileSize: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		opTimeout:   time.Duration(cfg.OperationTimeoutSec) * time.Second,
		trashDir:    trashDir,
		logger:      logging.Named("service"),
	}, nil
}

// Workspace returns the absolute workspace root.
func (s *DefaultNavigatorService) Workspace() string {
	return s.validator.Root()
}

// SubmitDir remembers folderName as the session's directory when it is a
// directory inside the workspace. An invalid directory is not an error; the
// response reports result false and the session keeps its previous directory.
func (s *DefaultNavigatorService) SubmitDir(sess *session.Session, req models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail) {
	if sess == nil {
		return nil, errors.NewInternalError("no session")
	}

	dir, err := s.validator.ResolveDirectory(req.FolderName)
	if err != nil {
		s.logger.Info("rejected submitted directory",
			zap.String("session", sess.ID),
			zap.String("folder_name", req.FolderName),
			zap.Error(err),
		)
	} else {
		sess.SetLastSubmittedDir(dir)
		s.logger.Info("directory submitted", zap.String("session", sess.ID), zap.String("dir", dir))
	}
	metrics.RecordOperation("submit_dir", err == nil)

	return &models.SubmitDirResponse{
		Command: models.CommandSubmitDirResponse,
		Result:  err == nil,
		Form:    req.Form,
	}, nil
}

// GetTree rebuilds the tree of the session's last submitted directory. The
// tree travels as a JSON string; a failed build is sent as "{}".
func (s *DefaultNavigatorService) GetTree(sess *session.Session) (*models.SendStringResponse, *models.ErrorDetail) {
	if sess == nil {
		return nil, errors.NewInternalError("no session")
	}
	dir := sess.LastSubmittedDir()
	if dir == "" {
		metrics.RecordOperation("get_tree", false)
		return nil, errors.NewNoDirectorySubmittedError()
	}

	nodes, err := s.builder.Build(dir)
	metrics.RecordOperation("get_tree", err == nil)

	data, marshalErr := json.Marshal(tree.Result{Tree: nodes, Err: err})
	if marshalErr != nil {
		return nil, errors.NewInternalError(fmt.Sprintf("Error encoding tree: %v", marshalErr))
	}
	return &models.SendStringResponse{Command: models.CommandSendString, Data: string(data)}, nil
}

// BuildTree builds the tree of an explicit directory inside the workspace.
func (s *DefaultNavigatorService) BuildTree(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
	dir, err := s.validator.ResolveDirectory(req.Path)
	if err != nil {
		metrics.RecordOperation("build_tree", false)
		return nil, s.pathError(req.Path, "build_tree", err)
	}

	nodes, err := s.builder.Build(dir)
	metrics.RecordOperation("build_tree", err == nil)
	if err != nil {
		return nil, errors.NewTreeBuildFailedError(req.Path, err.Error())
	}
	return &models.TreeResponse{Directory: dir, Nodes: nodes}, nil
}

// OpenFile returns the content of a text file in the workspace.
func (s *DefaultNavigatorService) OpenFile(req models.FilePathRequest) (resp *models.OpenFileResponse, errDetail *models.ErrorDetail) {
	defer func() { metrics.RecordOperation("open_file", errDetail == nil) }()

	filePath, err := s.validator.ResolvePath(req.FilePath)
	if err != nil {
		return nil, s.pathError(req.FilePath, "open_file", err)
	}

	stats, err := s.fsAdapter.GetFileStats(filePath)
	if err != nil {
		return nil, errors.FromFSError(req.FilePath, "get_stats", err)
	}
	if stats.IsDir {
		return nil, errors.NewInvalidParamsError(fmt.Sprintf("Path '%s' is a directory, not a file.", req.FilePath),
			map[string]interface{}{"filePath": req.FilePath})
	}
	if stats.Size > s.maxFileSize {
		return nil, errors.NewFileTooLargeError(req.FilePath, int(s.maxFileSize/(1024*1024)))
	}

	content, err := s.fsAdapter.ReadFileBytes(filePath)
	if err != nil {
		return nil, errors.FromFSError(req.FilePath, "read_bytes", err)
	}
	if !s.fsAdapter.IsValidUTF8(content) {
		return nil, errors.NewInvalidEncodingError(req.FilePath, "open_file")
	}

	return &models.OpenFileResponse{
		Command:    models.CommandOpenedFile,
		Path:       filePath,
		Content:    string(content),
		TotalLines: len(s.fsAdapter.SplitLines(content)),
	}, nil
}

// AddFile creates an empty file. It never overwrites an existing entry.
func (s *DefaultNavigatorService) AddFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return s.mutate(req.FilePath, "add_file", func(target string) (*models.CommandResponse, *models.ErrorDetail) {
		if err := s.fsAdapter.CreateFile(target, filePerm); err != nil {
			return nil, errors.FromFSError(req.FilePath, "add_file", err)
		}
		return &models.CommandResponse{Command: models.CommandAddedFile, Path: target}, nil
	})
}

// AddFolder creates one directory; its parent must exist.
func (s *DefaultNavigatorService) AddFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return s.mutate(req.FilePath, "add_folder", func(target string) (*models.CommandResponse, *models.ErrorDetail) {
		if err := s.fsAdapter.MakeDir(target, dirPerm); err != nil {
			return nil, errors.FromFSError(req.FilePath, "add_folder", err)
		}
		return &models.CommandResponse{Command: models.CommandAddedFolder, Path: target}, nil
	})
}

// DeleteFile removes a file, or moves it to the trash directory when one is configured.
func (s *DefaultNavigatorService) DeleteFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return s.mutate(req.FilePath, "delete_file", func(target string) (*models.CommandResponse, *models.ErrorDetail) {
		stats, err := s.fsAdapter.GetFileStats(target)
		if err != nil {
			return nil, errors.FromFSError(req.FilePath, "delete_file", err)
		}
		if stats.IsDir {
			return nil, errors.NewInvalidParamsError(fmt.Sprintf("Path '%s' is a directory, use delete_folder.", req.FilePath),
				map[string]interface{}{"filePath": req.FilePath})
		}
		trashed, errDetail := s.remove(req.FilePath, target, s.fsAdapter.RemoveFile)
		if errDetail != nil {
			return nil, errDetail
		}
		return &models.CommandResponse{Command: models.CommandDeletedFile, Path: target, Trashed: trashed}, nil
	})
}

// DeleteFolder removes a directory and everything below it, or moves it to
// the trash directory when one is configured.
func (s *DefaultNavigatorService) DeleteFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return s.mutate(req.FilePath, "delete_folder", func(target string) (*models.CommandResponse, *models.ErrorDetail) {
		stats, err := s.fsAdapter.GetFileStats(target)
		if err != nil {
			return nil, errors.FromFSError(req.FilePath, "delete_folder", err)
		}
		if !stats.IsDir {
			return nil, errors.NewInvalidParamsError(fmt.Sprintf("Path '%s' is not a directory, use delete_file.", req.FilePath),
				map[string]interface{}{"filePath": req.FilePath})
		}
		trashed, errDetail := s.remove(req.FilePath, target, s.fsAdapter.RemoveAll)
		if errDetail != nil {
			return nil, errDetail
		}
		return &models.CommandResponse{Command: models.CommandDeletedFolder, Path: target, Trashed: trashed}, nil
	})
}

// mutate validates input, holds the lock on the target while fn runs and
// records the outcome.
func (s *DefaultNavigatorService) mutate(
	input, op string,
	fn func(target string) (*models.CommandResponse, *models.ErrorDetail),
) (*models.CommandResponse, *models.ErrorDetail) {
	target, err := s.validator.ResolvePath(input)
	if err != nil {
		metrics.RecordOperation(op, false)
		return nil, s.pathError(input, op, err)
	}

	fileLock, err := s.lockManager.AcquireLock(target, s.opTimeout)
	if err != nil {
		metrics.RecordOperation(op, false)
		return nil, errors.NewOperationLockFailedError(input, op, err.Error())
	}
	defer func() {
		if err := s.lockManager.ReleaseLock(fileLock); err != nil {
			s.logger.Warn("error releasing lock", zap.String("path", target), zap.Error(err))
		}
	}()

	resp, errDetail := fn(target)
	metrics.RecordOperation(op, errDetail == nil)
	if errDetail != nil {
		s.logger.Info("operation failed", zap.String("op", op), zap.String("path", target), zap.Int("code", errDetail.Code))
		return nil, errDetail
	}
	s.logger.Info("operation completed", zap.String("op", op), zap.String("path", target))
	return resp, nil
}

// remove deletes target with del, or moves it to the trash directory. It
// returns the trash location, if any.
func (s *DefaultNavigatorService) remove(input, target string, del func(string) error) (string, *models.ErrorDetail) {
	if s.trashDir == "" {
		if err := del(target); err != nil {
			return "", errors.FromFSError(input, "remove", err)
		}
		return "", nil
	}

	dst := filepath.Join(s.trashDir, fmt.Sprintf("%s-%s-%s",
		time.Now().UTC().Format("20060102T150405"), uuid.NewString()[:8], filepath.Base(target)))
	if err := s.fsAdapter.Move(target, dst); err != nil {
		return "", errors.FromFSError(input, "move_to_trash", err)
	}
	return dst, nil
}

// pathError converts a workspace validation error to an ErrorDetail.
func (s *DefaultNavigatorService) pathError(input, op string, err error) *models.ErrorDetail {
	switch {
	case stdErrors.Is(err, workspace.ErrOutsideWorkspace):
		return errors.NewOutsideWorkspaceError(input, op)
	case stdErrors.Is(err, workspace.ErrWorkspaceRoot):
		return errors.NewInvalidParamsError("The workspace root cannot be modified.", map[string]interface{}{"filePath": input})
	case stdErrors.Is(err, workspace.ErrNotDirectory):
		return errors.NewInvalidParamsError(fmt.Sprintf("Path '%s' is not a directory.", input), map[string]interface{}{"path": input})
	case stdErrors.Is(err, os.ErrInvalid):
		return errors.NewInvalidParamsError("A path is required.", map[string]interface{}{"filePath": input})
	default:
		return errors.FromFSError(input, op, err)
	}
}

var _ NavigatorService = (*DefaultNavigatorService)(nil)
