// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

// Package reproducible provides timestamps for generated files that honor SOURCE_DATE_EPOCH.
//
// https://reproducible-builds.org/docs/source-date-epoch/
package reproducible

import (
	"os"
	"strconv"
	"sync"
	"time"
)

var (
	nowOnce sync.Once
	now     time.Time
)

func parseEpoch(str string) (time.Time, bool) {
	secs, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(secs, 0), true
}

// Now returns $SOURCE_DATE_EPOCH if it is set and valid, or else the time of the first call.
// Every call within a process returns the same value.
func Now() time.Time {
	nowOnce.Do(func() {
		var ok bool
		if now, ok = parseEpoch(os.Getenv("SOURCE_DATE_EPOCH")); !ok {
			now = time.Now()
		}
	})
	return now
}

// Touch sets the access and modification times of name to Now().
func Touch(name string) error {
	ts := Now()
	return os.Chtimes(name, ts, ts)
}
