// Copyright (c) 2014-2024 The LLL-TAO Developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package faults_test

import (
	"testing"

	"github.com/mercuryminer/LLL-TAO/internal/faults"
)

func TestErrorClasses(t *testing.T) {
	errorList := []struct {
		err      error
		io       bool
		invalid  bool
		notFound bool
		fatal    bool
	}{
		{faults.ErrHashmapOpen, true, false, false, false},
		{faults.ErrInvalidKeySize, false, true, false, false},
		{faults.ErrKeyNotFound, false, false, true, false},
		{faults.ErrBaseDirectory, false, false, false, true},
	}

	for i, e := range errorList {
		if faults.IsIOError(e.err) != e.io {
			t.Errorf("%d: expected io == %v for err = %v", i, e.io, e.err)
		}
		if faults.IsInvalid(e.err) != e.invalid {
			t.Errorf("%d: expected invalid == %v for err = %v", i, e.invalid, e.err)
		}
		if faults.IsNotFound(e.err) != e.notFound {
			t.Errorf("%d: expected notFound == %v for err = %v", i, e.notFound, e.err)
		}
		if faults.IsFatal(e.err) != e.fatal {
			t.Errorf("%d: expected fatal == %v for err = %v", i, e.fatal, e.err)
		}
	}
}
