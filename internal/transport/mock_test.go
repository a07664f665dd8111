package transport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"next-nav-server/internal/config"
	"next-nav-server/internal/directive"
	"next-nav-server/internal/filesystem"
	"next-nav-server/internal/lock"
	"next-nav-server/internal/models"
	"next-nav-server/internal/service"
	"next-nav-server/internal/session"
	"next-nav-server/internal/tree"
)

// mockNavigatorService is a service.NavigatorService whose operations are
// supplied per test. Unset operations panic, so a test only sets what it uses.
type mockNavigatorService struct {
	SubmitDirFunc    func(sess *session.Session, req models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail)
	GetTreeFunc      func(sess *session.Session) (*models.SendStringResponse, *models.ErrorDetail)
	BuildTreeFunc    func(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail)
	OpenFileFunc     func(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail)
	AddFileFunc      func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	AddFolderFunc    func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFileFunc   func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
	DeleteFolderFunc func(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail)
}

func (m *mockNavigatorService) SubmitDir(sess *session.Session, req models.SubmitDirRequest) (*models.SubmitDirResponse, *models.ErrorDetail) {
	return m.SubmitDirFunc(sess, req)
}

func (m *mockNavigatorService) GetTree(sess *session.Session) (*models.SendStringResponse, *models.ErrorDetail) {
	return m.GetTreeFunc(sess)
}

func (m *mockNavigatorService) BuildTree(req models.BuildTreeRequest) (*models.TreeResponse, *models.ErrorDetail) {
	return m.BuildTreeFunc(req)
}

func (m *mockNavigatorService) OpenFile(req models.FilePathRequest) (*models.OpenFileResponse, *models.ErrorDetail) {
	return m.OpenFileFunc(req)
}

func (m *mockNavigatorService) AddFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.AddFileFunc(req)
}

func (m *mockNavigatorService) AddFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.AddFolderFunc(req)
}

func (m *mockNavigatorService) DeleteFile(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.DeleteFileFunc(req)
}

func (m *mockNavigatorService) DeleteFolder(req models.FilePathRequest) (*models.CommandResponse, *models.ErrorDetail) {
	return m.DeleteFolderFunc(req)
}

func (m *mockNavigatorService) Workspace() string { return "/work" }

// newWorkspaceService wires the real navigator over a workspace holding
//
//	app/layout.tsx
//	app/page.tsx      ('use client')
//	app/api/route.ts
func newWorkspaceService(t *testing.T) (string, service.NavigatorService) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "work")
	files := map[string]string{
		"app/layout.tsx":   "export default function Layout() {}\n",
		"app/page.tsx":     "'use client'\nexport default function Page() {}\n",
		"app/api/route.ts": "export async function GET() {}\n",
	}
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	fs := filesystem.NewDefaultFileSystemAdapter()
	lm, err := lock.NewLockManager(t.TempDir())
	require.NoError(t, err)
	svc, err := service.NewDefaultNavigatorService(fs, lm, tree.NewBuilder(fs, directive.NewScanner(fs)), &config.Config{
		WorkingDirectory:    root,
		MaxFileSizeMB:       1,
		OperationTimeoutSec: 5,
	})
	require.NoError(t, err)
	return root, svc
}
