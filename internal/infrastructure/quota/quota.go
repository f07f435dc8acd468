// Package quota оценивает, сколько места занимает клиент и сколько ему доступно.
package quota

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Estimate оценка хранилища: байты в каталоге данных клиента и предел,
// до которого каталог может вырасти.
type Estimate struct {
	Usage int64 `json:"usage" yaml:"usage"`
	Quota int64 `json:"quota" yaml:"quota"`
}

// Estimator возвращает оценку хранилища
type Estimator interface {
	Estimate(ctx context.Context) (Estimate, error)
}

// DirEstimator измеряет каталог данных. Квота - текущий объем плюс свободное
// место тома для непривилегированного пользователя, с необязательным пределом.
type DirEstimator struct {
	dir      string
	maxBytes int64
}

// NewDirEstimator создает оценщик для dir. maxBytes <= 0 - предел только по тому.
func NewDirEstimator(dir string, maxBytes int64) *DirEstimator {
	return &DirEstimator{dir: dir, maxBytes: maxBytes}
}

func (d *DirEstimator) Estimate(ctx context.Context) (Estimate, error) {
	usage, err := dirSize(ctx, d.dir)
	if err != nil {
		return Estimate{}, err
	}

	_, _, available, err := VolumeStats(d.dir)
	if err != nil {
		return Estimate{}, err
	}

	quota := usage + available
	if d.maxBytes > 0 && d.maxBytes < quota {
		quota = d.maxBytes
	}
	return Estimate{Usage: usage, Quota: quota}, nil
}

func dirSize(ctx context.Context, dir string) (int64, error) {
	var total int64
	err := filepath.WalkDir(dir, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measure %s: %w", dir, err)
	}
	return total, nil
}
