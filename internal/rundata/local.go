// Copyright 2026 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package rundata

import (
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	gitv5 "github.com/go-git/go-git/v5"
	"github.com/golang/glog"
)

// buildInfo populates the properties from debug.ReadBuildInfo.
func buildInfo(m map[string]string) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		glog.Warning("debug.ReadBuildInfo() returned no BuildInfo.")
		return
	}
	m["build.go_version"] = bi.GoVersion
	m["build.path"] = bi.Path
	m["build.main.path"] = bi.Main.Path
	m["build.main.version"] = bi.Main.Version
	m["build.main.sum"] = bi.Main.Sum

	for _, setting := range bi.Settings {
		m["build.settings."+setting.Key] = setting.Value
	}
}

func origin(repo *gitv5.Repository) (string, error) {
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", err
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", errors.New("origin has no URLs")
	}
	return urls[0], nil // Used for fetching.
}

func head(repo *gitv5.Repository) (string, time.Time, error) {
	ref, err := repo.Head()
	if err != nil {
		return "", time.Time{}, err
	}
	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return "", time.Time{}, err
	}
	return commit.Hash.String(), commit.Committer.When, nil
}

// repoInfo populates the controller.git properties from repo.
func repoInfo(m map[string]string, repo *gitv5.Repository) {
	const prefix = "controller.git."
	if url, err := origin(repo); err != nil {
		glog.V(1).Infof("Could not get controller origin URL: %v", err)
	} else {
		m[prefix+"origin"] = url
	}

	hash, when, err := head(repo)
	if err != nil {
		glog.Warningf("Could not get controller HEAD: %v", err)
		return
	}
	m[prefix+"commit"] = hash
	m[prefix+"commit_timestamp"] = fmt.Sprint(when.Unix())

	wt, err := repo.Worktree()
	if err != nil {
		return
	}
	status, err := wt.Status()
	if err != nil {
		glog.Warningf("Could not get controller git status: %v", err)
		return
	}
	m[prefix+"status"] = status.String()
	m[prefix+"clean"] = fmt.Sprint(status.IsClean())
}

// gitInfo populates the controller.git properties for the checkout
// containing dir.  A dir outside any git repository adds nothing.
func gitInfo(m map[string]string, dir string) {
	repo, err := gitv5.PlainOpenWithOptions(dir, &gitv5.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		glog.V(1).Infof("Controller directory %s is not a git checkout: %v", dir, err)
		return
	}
	repoInfo(m, repo)
}
