// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2024, The LKT Authors.
// Licensed under the BSD-3-Clause License (the "License").
// You may not use this file except in compliance with the License.

// Package bootutils manages the local checkout of the boot-utils
// scripts which drive QEMU boot tests.
package bootutils

import (
	"context"
	"errors"
	"fmt"
	"os"

	git "github.com/go-git/go-git/v5"

	"lkt.sh/log"
)

// RepositoryURL is the upstream home of the boot testing scripts.
const RepositoryURL = "https://github.com/ClangBuiltLinux/boot-utils"

// Ensure clones boot-utils into dir when it does not exist yet and
// fast-forwards an existing checkout to the latest upstream state.
func Ensure(ctx context.Context, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		log.G(ctx).WithField("destination", dir).Info("cloning boot-utils")

		_, err = git.PlainCloneContext(ctx, dir, false, &git.CloneOptions{
			URL:   RepositoryURL,
			Depth: 1,
		})
		if err != nil {
			return fmt.Errorf("could not clone boot-utils: %w", err)
		}

		return nil
	} else if err != nil {
		return err
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("could not open boot-utils repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return err
	}

	log.G(ctx).WithField("destination", dir).Info("updating boot-utils")

	err = worktree.PullContext(ctx, &git.PullOptions{})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("could not update boot-utils: %w", err)
	}

	return nil
}
