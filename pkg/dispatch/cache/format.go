// Copyright The Janus Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package cache implements the serialization and build cache (C10): the
// on-disk JDSC format, a flat-file store, an alternate Badger-backed store,
// and an optional fsnotify source watcher for proactive invalidation.
package cache

import (
	"bytes"
	"encoding/binary"
	"errors"

	"github.com/janus-lang/janus/pkg/dispatch/signature"
	"github.com/janus-lang/janus/pkg/dispatch/table"
	"github.com/janus-lang/janus/pkg/dispatch/types"
)

// JDSCIdentifier is the 4-byte magic marking a dispatch cache file.
var JDSCIdentifier = [4]byte{'J', 'D', 'S', 'C'}

// Current format version.  Reader minor must be ≥ writer minor; major must
// match exactly, per §4.10.
const (
	JDSCMajorVersion uint16 = 1
	JDSCMinorVersion uint16 = 0
	JDSCPatchVersion uint16 = 0
)

// Header is the fixed-layout prefix of every .jdsc file, hand-rolled in
// big-endian rather than gob-encoded so the magic and version can be read
// without a full decode.
type Header struct {
	Identifier [4]byte
	Major      uint16
	Minor      uint16
	Patch      uint16
	TableCount uint32
	TotalSize  uint64
	BuildHash  uint64
}

// ErrMalformed is returned when a file's bytes don't match the expected
// layout.  It is always treated as a cache miss by Store implementations,
// never as a fatal error.
var ErrMalformed = errors.New("malformed dispatch cache file")

// MarshalBinary encodes the header.
func (h *Header) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(h.Identifier[:])
	writeUint16(&buf, h.Major)
	writeUint16(&buf, h.Minor)
	writeUint16(&buf, h.Patch)
	writeUint32(&buf, h.TableCount)
	writeUint64(&buf, h.TotalSize)
	writeUint64(&buf, h.BuildHash)

	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a header previously written by MarshalBinary.
func (h *Header) UnmarshalBinary(buf *bytes.Buffer) error {
	if n, err := buf.Read(h.Identifier[:]); err != nil || n != 4 {
		return ErrMalformed
	}

	var err error

	if h.Major, err = readUint16(buf); err != nil {
		return ErrMalformed
	}

	if h.Minor, err = readUint16(buf); err != nil {
		return ErrMalformed
	}

	if h.Patch, err = readUint16(buf); err != nil {
		return ErrMalformed
	}

	if h.TableCount, err = readUint32(buf); err != nil {
		return ErrMalformed
	}

	if h.TotalSize, err = readUint64(buf); err != nil {
		return ErrMalformed
	}

	if h.BuildHash, err = readUint64(buf); err != nil {
		return ErrMalformed
	}

	return nil
}

// IsCompatible reports whether a header produced by some writer can be read
// by this build: identifier and major must match exactly; this reader's
// minor must be at least the writer's minor.
func (h *Header) IsCompatible() bool {
	return h.Identifier == JDSCIdentifier &&
		h.Major == JDSCMajorVersion &&
		JDSCMinorVersion >= h.Minor
}

// File is one fully decoded .jdsc payload: a header plus every table it
// carries (§4.10 allows one file per signature or one batch file — this
// type supports both uses).
type File struct {
	Header Header
	Tables []*table.DispatchTable
}

// MarshalBinary encodes a File: header, then each table per the layout in
// §4.10 — signature_name_len|signature_name|param_count|type_sig[param_count]
// |entry_count|entries[entry_count]|has_tree(0/1)|tree?|strategy_tag.
func (f *File) MarshalBinary() ([]byte, error) {
	var body bytes.Buffer

	for _, t := range f.Tables {
		if err := marshalTable(&body, t); err != nil {
			return nil, err
		}
	}

	f.Header.TableCount = uint32(len(f.Tables))
	f.Header.TotalSize = uint64(body.Len())

	headerBytes, err := f.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}

	return append(headerBytes, body.Bytes()...), nil
}

// UnmarshalBinary decodes a File previously written by MarshalBinary.  A
// version mismatch or truncated buffer is reported via ErrMalformed /
// ErrVersionMismatch; callers treat both as a cache miss.
func (f *File) UnmarshalBinary(data []byte) error {
	buf := bytes.NewBuffer(data)

	if err := f.Header.UnmarshalBinary(buf); err != nil {
		return err
	}

	if !f.Header.IsCompatible() {
		return ErrVersionMismatch
	}

	f.Tables = make([]*table.DispatchTable, 0, f.Header.TableCount)

	for i := uint32(0); i < f.Header.TableCount; i++ {
		t, err := unmarshalTable(buf)
		if err != nil {
			return err
		}

		f.Tables = append(f.Tables, t)
	}

	return nil
}

// ErrVersionMismatch is returned when a file's header fails IsCompatible.
var ErrVersionMismatch = errors.New("dispatch cache version mismatch")

func marshalTable(buf *bytes.Buffer, t *table.DispatchTable) error {
	writeString(buf, t.SignatureName)
	writeUint32(buf, uint32(t.ParameterCount))

	writeUint32(buf, uint32(len(t.Entries)))

	for i, e := range t.Entries {
		var sig []types.Id
		if i < len(t.TypeSignature) {
			sig = t.TypeSignature[i]
		}

		marshalEntry(buf, e, sig)
	}

	if t.DecisionTree == nil {
		buf.WriteByte(0)
	} else {
		buf.WriteByte(1)
		marshalTree(buf, t.DecisionTree)
	}

	buf.WriteByte(byte(t.Strategy))

	return nil
}

func marshalEntry(buf *bytes.Buffer, e *table.DispatchEntry, sig []types.Id) {
	writeUint32(buf, uint32(len(sig)))

	for _, id := range sig {
		writeUint32(buf, uint32(id))
	}

	writeUint64(buf, e.TypeSignatureKey)
	writeString(buf, e.Implementation.Name)
	writeString(buf, e.Implementation.Module)
	writeUint32(buf, e.Implementation.Disambiguator)
	writeUint64(buf, e.CallFrequency.Load())
	writeUint32(buf, e.SpecificityRank)
	writeUint32(buf, e.Flags)
}

func marshalTree(buf *bytes.Buffer, n *table.DecisionTreeNode) {
	if n.Terminal {
		buf.WriteByte(1)
		writeUint32(buf, uint32(n.Entry))

		return
	}

	buf.WriteByte(0)
	writeUint32(buf, uint32(n.DiscriminatorTypeIndex))
	writeUint32(buf, uint32(n.DiscriminatorTypeId))
	marshalTree(buf, n.Left)
	marshalTree(buf, n.Right)
}

func unmarshalTable(buf *bytes.Buffer) (*table.DispatchTable, error) {
	name, err := readString(buf)
	if err != nil {
		return nil, err
	}

	paramCount, err := readUint32(buf)
	if err != nil {
		return nil, err
	}

	t := &table.DispatchTable{SignatureName: name, ParameterCount: int(paramCount)}

	entryCount, err := readUint32(buf)
	if err != nil {
		return nil, err
	}

	t.Entries = make([]*table.DispatchEntry, entryCount)
	t.TypeSignature = make([][]types.Id, entryCount)

	for i := range t.Entries {
		sig, e, err := unmarshalEntry(buf)
		if err != nil {
			return nil, err
		}

		t.TypeSignature[i] = sig
		t.Entries[i] = e
	}

	hasTree, err := buf.ReadByte()
	if err != nil {
		return nil, ErrMalformed
	}

	if hasTree == 1 {
		tree, err := unmarshalTree(buf)
		if err != nil {
			return nil, err
		}

		t.DecisionTree = tree
	}

	strategyTag, err := buf.ReadByte()
	if err != nil {
		return nil, ErrMalformed
	}

	t.Strategy = table.Strategy(strategyTag)

	return t, nil
}

func unmarshalEntry(buf *bytes.Buffer) ([]types.Id, *table.DispatchEntry, error) {
	sigLen, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}

	sig := make([]types.Id, sigLen)

	for i := range sig {
		id, err := readUint32(buf)
		if err != nil {
			return nil, nil, err
		}

		sig[i] = types.Id(id)
	}

	key, err := readUint64(buf)
	if err != nil {
		return nil, nil, err
	}

	name, err := readString(buf)
	if err != nil {
		return nil, nil, err
	}

	module, err := readString(buf)
	if err != nil {
		return nil, nil, err
	}

	disambiguator, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}

	freq, err := readUint64(buf)
	if err != nil {
		return nil, nil, err
	}

	rank, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}

	flags, err := readUint32(buf)
	if err != nil {
		return nil, nil, err
	}

	fid := signature.FunctionId{Name: name, Module: module, Disambiguator: disambiguator}
	e := &table.DispatchEntry{
		TypeSignatureKey: key,
		Implementation:   &fid,
		SpecificityRank:  rank,
		Flags:            flags,
	}
	e.CallFrequency.Store(freq)

	return sig, e, nil
}

func unmarshalTree(buf *bytes.Buffer) (*table.DecisionTreeNode, error) {
	tag, err := buf.ReadByte()
	if err != nil {
		return nil, ErrMalformed
	}

	if tag == 1 {
		entry, err := readUint32(buf)
		if err != nil {
			return nil, err
		}

		return &table.DecisionTreeNode{Terminal: true, Entry: int(entry)}, nil
	}

	idx, err := readUint32(buf)
	if err != nil {
		return nil, err
	}

	tid, err := readUint32(buf)
	if err != nil {
		return nil, err
	}

	left, err := unmarshalTree(buf)
	if err != nil {
		return nil, err
	}

	right, err := unmarshalTree(buf)
	if err != nil {
		return nil, err
	}

	return &table.DecisionTreeNode{
		DiscriminatorTypeIndex: int(idx),
		DiscriminatorTypeId:    types.Id(tid),
		Left:                   left,
		Right:                  right,
	}, nil
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeString(buf *bytes.Buffer, s string) {
	writeUint32(buf, uint32(len(s)))
	buf.WriteString(s)
}

func readUint16(buf *bytes.Buffer) (uint16, error) {
	var b [2]byte
	if n, err := buf.Read(b[:]); err != nil || n != 2 {
		return 0, ErrMalformed
	}

	return binary.BigEndian.Uint16(b[:]), nil
}

func readUint32(buf *bytes.Buffer) (uint32, error) {
	var b [4]byte
	if n, err := buf.Read(b[:]); err != nil || n != 4 {
		return 0, ErrMalformed
	}

	return binary.BigEndian.Uint32(b[:]), nil
}

func readUint64(buf *bytes.Buffer) (uint64, error) {
	var b [8]byte
	if n, err := buf.Read(b[:]); err != nil || n != 8 {
		return 0, ErrMalformed
	}

	return binary.BigEndian.Uint64(b[:]), nil
}

func readString(buf *bytes.Buffer) (string, error) {
	n, err := readUint32(buf)
	if err != nil {
		return "", err
	}

	b := make([]byte, n)
	if k, err := buf.Read(b); err != nil || uint32(k) != n {
		return "", ErrMalformed
	}

	return string(b), nil
}

