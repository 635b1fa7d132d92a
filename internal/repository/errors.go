package repository

import "errors"

// ErrConditionFailed возвращается, когда условное обновление не затронуло ни одной строки:
// запись отсутствует или уже не в ожидаемом статусе.
var ErrConditionFailed = errors.New("repository: condition failed")
