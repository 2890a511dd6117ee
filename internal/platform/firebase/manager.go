// Package firebase 管理到 Firestore 的进程级连接生命周期。
// 连接在启动时显式建立一次，由 main 注入到各仓储，关闭时显式释放。
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/wyfcoding/pkg/logging"
	"google.golang.org/api/option"
)

// EnvServiceAccount 服务账号凭证文件路径的环境变量。
const EnvServiceAccount = "FIREBASE_SERVICE_ACCOUNT"

// probeCollection 连通性探测使用的集合。
const probeCollection = "connection_test"

const defaultOpTimeout = 10 * time.Second

// ErrNotInitialized 在 Connect 成功之前请求客户端句柄时返回。
var ErrNotInitialized = errors.New("firebase: client not initialized")

// ConfigError 表示凭证或环境配置错误。启动阶段致命，不重试。
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("firebase: %s: %v", e.Reason, e.Err)
	}
	return "firebase: " + e.Reason
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Config Firestore 连接配置。
type Config struct {
	// HealthCheck 为 true 时在建连后执行一次写入/删除探测，失败即视为启动失败。
	HealthCheck bool
	// OpTimeout 探测操作的超时时间。
	OpTimeout time.Duration
}

// Manager 持有进程内唯一的 Firestore 客户端。
// Connect 幂等：重复调用复用首次建立的连接。
type Manager struct {
	cfg Config

	mu        sync.Mutex
	client    *firestore.Client
	projectID string
}

// NewManager 创建连接管理器，不建立连接。
func NewManager(cfg Config) *Manager {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}
	return &Manager{cfg: cfg}
}

// Connect 建立 Firestore 连接。
// 流程：
// 1. 从 FIREBASE_SERVICE_ACCOUNT 读取凭证文件路径
// 2. 校验文件存在并解析 project_id
// 3. 创建客户端
// 4. 可选的连通性探测（写入并删除一个标记文档），失败即返回错误
// 所有失败都记录日志并返回给调用方，由进程负责退出。
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return nil
	}

	path := os.Getenv(EnvServiceAccount)
	if path == "" {
		err := &ConfigError{Reason: EnvServiceAccount + " environment variable is not set"}
		logging.Error(ctx, "firestore credentials missing", "error", err)
		return err
	}

	if _, statErr := os.Stat(path); statErr != nil {
		err := &ConfigError{Reason: "service account file not found: " + path, Err: statErr}
		logging.Error(ctx, "firestore credentials unreadable", "path", path, "error", err)
		return err
	}

	projectID, err := projectIDFromFile(path)
	if err != nil {
		logging.Error(ctx, "firestore credentials invalid", "path", path, "error", err)
		return err
	}

	client, err := firestore.NewClient(ctx, projectID, option.WithCredentialsFile(path))
	if err != nil {
		logging.Error(ctx, "firestore client creation failed", "project_id", projectID, "error", err)
		return fmt.Errorf("firebase: create client: %w", err)
	}

	if m.cfg.HealthCheck {
		if err := m.probe(ctx, client); err != nil {
			client.Close()
			logging.Error(ctx, "firestore liveness probe failed", "project_id", projectID, "error", err)
			return fmt.Errorf("firebase: liveness probe: %w", err)
		}
	}

	m.client = client
	m.projectID = projectID
	logging.Info(ctx, "firestore connected", "project_id", projectID, "health_check", m.cfg.HealthCheck)
	return nil
}

// probe 往返探测：写入标记文档后删除，证明连接可读写。
func (m *Manager) probe(ctx context.Context, client *firestore.Client) error {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.OpTimeout)
	defer cancel()

	doc := client.Collection(probeCollection).Doc("probe")
	if _, err := doc.Set(ctx, map[string]any{"timestamp": time.Now()}); err != nil {
		return err
	}
	_, err := doc.Delete(ctx)
	return err
}

// Client 返回共享客户端句柄。Connect 成功前调用返回 ErrNotInitialized。
func (m *Manager) Client() (*firestore.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil, ErrNotInitialized
	}
	return m.client, nil
}

// ProjectID 返回已连接项目的 ID，未连接时为空串。
func (m *Manager) ProjectID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.projectID
}

// Close 关闭连接。关闭后 Client 再次返回 ErrNotInitialized。
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client == nil {
		return nil
	}
	err := m.client.Close()
	m.client = nil
	m.projectID = ""
	return err
}

func projectIDFromFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", &ConfigError{Reason: "read service account file", Err: err}
	}
	var sa struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(raw, &sa); err != nil {
		return "", &ConfigError{Reason: "parse service account file", Err: err}
	}
	if sa.ProjectID == "" {
		return "", &ConfigError{Reason: "service account file has no project_id"}
	}
	return sa.ProjectID, nil
}
