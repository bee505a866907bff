// Package session 記録メディア上の録画セッションを管理する
//
// セッションはタイムスタンプ由来のディレクトリ名で識別され、
// 生H.264ストリーム・PTSログ・完成MKVの3つの成果物を保持する。
// セッションは作成後に変更されず、プロセス終了後もメディア上に残る。
package session

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// IDLayout はセッションIDのタイムスタンプ形式（秒単位の分解能）
const IDLayout = "20060102-150405"

// セッションディレクトリ内の成果物ファイル名
const (
	RawVideoName  = "video.h264"
	TimestampName = "timestamps.txt"
	ContainerName = "final_video.mkv"
)

// DirectoryCreationError はセッションディレクトリの作成失敗を表す
// メディア未マウント、権限不足、ディレクトリの衝突の場合を含む
type DirectoryCreationError struct {
	Path string // 作成しようとしたパス
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("セッションディレクトリの作成に失敗 (%s): %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error {
	return e.Err
}

// Session は1回の録画セッションを表す
// 作成後は変更されない
type Session struct {
	ID  string // タイムスタンプ由来のセッションID
	Dir string // 記録メディア上のセッションディレクトリ
}

// New は現在時刻からセッションを作成し、ディレクトリを生成する
// 親ディレクトリ（マウントポイント）は既に存在していなければならず、
// セッションディレクトリが既に存在する場合は失敗する
func New(mountRoot string, now time.Time) (Session, error) {
	id := now.Format(IDLayout)
	dir := filepath.Join(mountRoot, id)

	// os.Mkdir は親が存在しない場合と対象が既に存在する場合の
	// 両方で失敗する。どちらもセッション開始を中止する
	if err := os.Mkdir(dir, 0755); err != nil {
		return Session{}, &DirectoryCreationError{Path: dir, Err: err}
	}

	return Session{ID: id, Dir: dir}, nil
}

// RawVideoPath は生H.264ストリームのパスを返す
func (s Session) RawVideoPath() string {
	return filepath.Join(s.Dir, RawVideoName)
}

// TimestampPath はPTSログのパスを返す
func (s Session) TimestampPath() string {
	return filepath.Join(s.Dir, TimestampName)
}

// ContainerPath は完成MKVのパスを返す
func (s Session) ContainerPath() string {
	return filepath.Join(s.Dir, ContainerName)
}
