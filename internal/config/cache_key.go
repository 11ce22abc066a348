package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptKey returns the cache key of a student's in-progress attempt for a
// scope. Practice uses the "practice" scope, comprehensive runs use one scope
// per day.
func (r *CacheKeyStruct) AttemptKey(studentID int, scope string) string {
	return fmt.Sprintf("student:%d:attempt:%s", studentID, scope)
}

// ComprehensiveScope returns the attempt scope of one comprehensive day.
func (r *CacheKeyStruct) ComprehensiveScope(runID string, day int) string {
	return fmt.Sprintf("comprehensive:%s:day:%d", runID, day)
}

// ComprehensiveRunKey returns the cache key holding a comprehensive run's progress.
func (r *CacheKeyStruct) ComprehensiveRunKey(studentID int, runID string) string {
	return fmt.Sprintf("student:%d:comprehensive:%s", studentID, runID)
}

var CacheKey = NewCacheKeyStruct()

// PracticeScope is the attempt scope of a regular practice session.
const PracticeScope = "practice"
