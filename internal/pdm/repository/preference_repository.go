package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable 未配置 Redis
var ErrUnavailable = errors.New("preference store unavailable")

// PreferenceRepository 用户偏好（上次选中的项目），存储在 Redis
type PreferenceRepository struct {
	rdb *redis.Client
}

func NewPreferenceRepository(rdb *redis.Client) *PreferenceRepository {
	return &PreferenceRepository{rdb: rdb}
}

func selectedKey(userID string) string {
	if userID == "" {
		userID = "anonymous"
	}
	return "pdm:pref:" + userID + ":selected_project"
}

// GetSelectedProject 未设置时返回 nil, nil
func (r *PreferenceRepository) GetSelectedProject(ctx context.Context, userID string) (*uint, error) {
	if r.rdb == nil {
		return nil, ErrUnavailable
	}
	val, err := r.rdb.Get(ctx, selectedKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseUint(val, 10, 0)
	if err != nil {
		// 脏数据视为未设置
		return nil, nil
	}
	out := uint(id)
	return &out, nil
}

// SetSelectedProject 记住选中的项目
func (r *PreferenceRepository) SetSelectedProject(ctx context.Context, userID string, projectID uint) error {
	if r.rdb == nil {
		return ErrUnavailable
	}
	return r.rdb.Set(ctx, selectedKey(userID), strconv.FormatUint(uint64(projectID), 10), 0).Err()
}

// ClearSelectedProject 清除选中
func (r *PreferenceRepository) ClearSelectedProject(ctx context.Context, userID string) error {
	if r.rdb == nil {
		return ErrUnavailable
	}
	return r.rdb.Del(ctx, selectedKey(userID)).Err()
}
