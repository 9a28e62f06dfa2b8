package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/mat"
)

// FoldSnapshot は1フォールド分の変換済み行列を保持する
//
// TransformTrain と TransformTest の結果をそのまま保存し、キャッシュから
// 復元した場合でも分類器には同一の入力が渡る。
type FoldSnapshot struct {
	TrainX *mat.Dense
	TrainY *mat.VecDense
	TestX  *mat.Dense
}

// snapshotWire はgobで直接扱えるバイナリ表現
type snapshotWire struct {
	TrainX []byte
	TrainY []byte
	TestX  []byte
}

// EncodeSnapshot はスナップショットを w に書き込む
//
// mat.Dense と mat.VecDense のバイナリ形式を gob で包む。
func EncodeSnapshot(w io.Writer, s *FoldSnapshot) error {
	if s == nil || s.TrainX == nil || s.TrainY == nil || s.TestX == nil {
		return errors.New("cvbench: encode snapshot: incomplete snapshot")
	}
	var wire snapshotWire
	var err error
	if wire.TrainX, err = s.TrainX.MarshalBinary(); err != nil {
		return errors.Wrap(err, "cvbench: encode snapshot train X")
	}
	if wire.TrainY, err = s.TrainY.MarshalBinary(); err != nil {
		return errors.Wrap(err, "cvbench: encode snapshot train y")
	}
	if wire.TestX, err = s.TestX.MarshalBinary(); err != nil {
		return errors.Wrap(err, "cvbench: encode snapshot test X")
	}
	if err := gob.NewEncoder(w).Encode(&wire); err != nil {
		return errors.Wrap(err, "cvbench: failed to encode snapshot")
	}
	return nil
}

// DecodeSnapshot は r からスナップショットを読み込む
func DecodeSnapshot(r io.Reader) (*FoldSnapshot, error) {
	var wire snapshotWire
	if err := gob.NewDecoder(r).Decode(&wire); err != nil {
		return nil, errors.Wrap(err, "cvbench: failed to decode snapshot")
	}
	s := &FoldSnapshot{TrainX: &mat.Dense{}, TrainY: &mat.VecDense{}, TestX: &mat.Dense{}}
	if err := s.TrainX.UnmarshalBinary(wire.TrainX); err != nil {
		return nil, errors.Wrap(err, "cvbench: decode snapshot train X")
	}
	if err := s.TrainY.UnmarshalBinary(wire.TrainY); err != nil {
		return nil, errors.Wrap(err, "cvbench: decode snapshot train y")
	}
	if err := s.TestX.UnmarshalBinary(wire.TestX); err != nil {
		return nil, errors.Wrap(err, "cvbench: decode snapshot test X")
	}
	return s, nil
}

// MarshalSnapshot は EncodeSnapshot のバイト列版
func MarshalSnapshot(s *FoldSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := EncodeSnapshot(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalSnapshot は DecodeSnapshot のバイト列版
func UnmarshalSnapshot(data []byte) (*FoldSnapshot, error) {
	return DecodeSnapshot(bytes.NewReader(data))
}
