// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package harness

import (
	"fmt"
	"os"

	"github.com/android-tools/logstress/fatalerror"
)

// PrepareLogDir creates dir with owner-only permissions. An existing entry
// counts as success, so the call is idempotent.
func PrepareLogDir(dir string) error {
	err := os.Mkdir(dir, 0700)
	if err == nil || os.IsExist(err) {
		return nil
	}
	return fatalerror.New(fatalerror.LogDirError, fmt.Errorf("failed to create directory %s: %w", dir, err))
}
