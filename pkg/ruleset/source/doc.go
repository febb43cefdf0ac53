// Package source provides rule set sources: places rule set documents
// are loaded from and watched for changes. Three implementations are
// included: in-memory (testing and embedding), file system (fsnotify
// backed), and git (polled remote repository).
package source
