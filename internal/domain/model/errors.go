package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResolution H3解像度が0〜15の範囲外
	ErrInvalidResolution = errors.New("invalid h3 resolution")
	// ErrEmptyGrid グリッドにセルが1つもない
	ErrEmptyGrid = errors.New("hex grid is empty")
	// ErrBoundaryNotFound ジオコーディングで都市境界が見つからない
	ErrBoundaryNotFound = errors.New("city boundary not found")
	// ErrCityCenterNotFound ジオコーディングで都市中心が見つからない
	ErrCityCenterNotFound = errors.New("city center not found")
	// ErrCheckpointNotFound チェックポイントファイルが存在しない
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	// ErrRunNotFound 実験ランが存在しない
	ErrRunNotFound = errors.New("experiment run not found")
)

// MaxH3Resolution H3の最大解像度
const MaxH3Resolution = 15

// ValidateResolution 解像度の範囲をチェック
func ValidateResolution(resolution int) error {
	if resolution < 0 || resolution > MaxH3Resolution {
		return fmt.Errorf("%w: %d", ErrInvalidResolution, resolution)
	}
	return nil
}
