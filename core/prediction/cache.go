package prediction

import (
	"context"
	"fmt"

	"github.com/trezcool/attendance/core"
)

// Cache stores computed predictions. Misses return ok == false and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (p Prediction, ok bool, err error)
	Set(ctx context.Context, key string, p Prediction) error
}

// CacheKey identifies the prediction of a student on a day.
func CacheKey(studentID string, date core.Date) string {
	return fmt.Sprintf("prediction:%s:%s", studentID, date)
}
