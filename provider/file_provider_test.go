package provider

import (
	"context"
	"testing"
)

func TestFileProviderWriteAndPath(t *testing.T) {
	dir := t.TempDir()
	fp, err := NewFileProvider(dir)
	if err != nil {
		t.Fatalf("new file provider: %v", err)
	}

	hash, ok := fp.Write("x", []byte("hello"))
	if !ok {
		t.Fatalf("write failed")
	}
	want := "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"
	if hash != want {
		t.Fatalf("hash=%s want %s", hash, want)
	}

	path, ok := fp.Path(context.Background(), hash, "", false)
	if !ok {
		t.Fatalf("path lookup failed")
	}
	got, err := hashFile(path)
	if err != nil {
		t.Fatalf("rehash: %v", err)
	}
	if got != hash {
		t.Fatalf("rehashed=%s want %s", got, hash)
	}
}

func TestFileProviderPathMiss(t *testing.T) {
	fp, err := NewFileProvider(t.TempDir())
	if err != nil {
		t.Fatalf("new file provider: %v", err)
	}
	if _, ok := fp.Path(context.Background(), "deadbeef", "", false); ok {
		t.Fatalf("expected miss for unknown hash")
	}
}

func TestFileProviderCopy(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()

	srcFP, err := NewFileProvider(src)
	if err != nil {
		t.Fatalf("new src provider: %v", err)
	}
	hash, ok := srcFP.Write("y", []byte("copy me"))
	if !ok {
		t.Fatalf("write failed")
	}
	srcPath, ok := srcFP.Path(context.Background(), hash, "", false)
	if !ok {
		t.Fatalf("path lookup failed")
	}

	dstFP, err := NewFileProvider(dst)
	if err != nil {
		t.Fatalf("new dst provider: %v", err)
	}
	newPath, ok := dstFP.Copy(srcPath)
	if !ok {
		t.Fatalf("copy failed")
	}
	got, err := hashFile(newPath)
	if err != nil {
		t.Fatalf("rehash: %v", err)
	}
	if got != hash {
		t.Fatalf("copied hash=%s want %s", got, hash)
	}
}
