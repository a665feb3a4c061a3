// Package kvcache is the advisory local cache of lesson completions and
// experience totals. The progress repository stays authoritative; a cache
// miss or failure never changes an outcome.
package kvcache

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// ErrNotFound is returned by Get for an absent key.
var ErrNotFound = errors.New("kvcache: key not found")

// Store is a byte-oriented key-value cache.
type Store interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
	// Flush persists buffered writes.
	Flush() error
	Close() error
}

// LessonKey is the key for a quest lesson completion flag.
func LessonKey(courseID string, moduleIndex, lessonIndex int) string {
	return fmt.Sprintf("lesson:%s-%d-%d", courseID, moduleIndex, lessonIndex)
}

// XPKey is the key for a learner's cached experience total.
func XPKey(learnerID string) string {
	return "xp:" + learnerID
}

// GetBool reads a flag. A missing key is false.
func GetBool(s Store, key string) (bool, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(string(v))
}

// SetBool writes a flag.
func SetBool(s Store, key string, v bool) error {
	return s.Set(key, []byte(strconv.FormatBool(v)))
}

// GetInt reads an integer. The second result is false for a missing key.
func GetInt(s Store, key string) (int, bool, error) {
	v, err := s.Get(key)
	if errors.Is(err, ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.Atoi(string(v))
	if err != nil {
		return 0, false, fmt.Errorf("kvcache: %s: %w", key, err)
	}
	return n, true, nil
}

// SetInt writes an integer.
func SetInt(s Store, key string, v int) error {
	return s.Set(key, []byte(strconv.Itoa(v)))
}

// Memory is a map-backed Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-process cache.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Flush() error { return nil }

func (m *Memory) Close() error { return nil }
