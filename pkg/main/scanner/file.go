// scanner performs the file system side of entry maintenance: executing
// rename plans, moving and deleting files between entry directories and
// streaming download archives.
package scanner

import (
	"archive/zip"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nekomata-dev/subdex/pkg/main/logger"
	"github.com/nekomata-dev/subdex/pkg/main/rename"
	"github.com/pkg/errors"
)

// OpResult is the bulk operation outcome contract: how many files were
// processed and how many were skipped or errored.
type OpResult struct {
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

func checkFile(fpath string, checkexists, checkregular bool) bool {
	sfi, err := os.Stat(fpath)
	if checkexists {
		return !errors.Is(err, fs.ErrNotExist)
	}
	if err != nil {
		return false
	}
	if checkregular {
		return sfi.Mode().IsRegular()
	}
	return false
}

// CheckFileExist checks if a file exists at the given path.
func CheckFileExist(fpath string) bool {
	return checkFile(fpath, true, false)
}

// safeName rejects names that escape the entry directory.
func safeName(name string) bool {
	return name != "" && name == logger.Path(name, false)
}

// RemoveFile deletes a single file, forcing permissions first. A missing
// file reports false without an error.
func RemoveFile(file string) (bool, error) {
	if !CheckFileExist(file) {
		return false, nil
	}
	_ = os.Chmod(file, 0o777)
	if err := os.Remove(file); err != nil {
		return false, errors.Wrap(err, "remove file")
	}
	logger.LogDynamicany(logger.StrInfo, "File removed", logger.StrFile, file)
	return true, nil
}

// RenameFile renames one file inside dir. The target must not already
// exist; clobbering an unrelated subtitle is never acceptable.
func RenameFile(dir, from, to string) error {
	if !safeName(from) || !safeName(to) {
		return logger.ErrNotAllowed
	}
	src := filepath.Join(dir, from)
	dst := filepath.Join(dir, to)
	if !checkFile(src, false, true) {
		return logger.ErrNotFound
	}
	if CheckFileExist(dst) {
		return errors.Wrapf(logger.ErrNotAllowed, "target exists: %s", to)
	}
	if err := os.Rename(src, dst); err != nil {
		return errors.Wrap(err, "rename file")
	}
	return nil
}

// ExecutePlan runs a rename plan against an entry directory, counting
// per-file outcomes instead of aborting on the first failure.
func ExecutePlan(dir string, plan []rename.PlanEntry) OpResult {
	var res OpResult
	for idx := range plan {
		if err := RenameFile(dir, plan[idx].From, plan[idx].To); err != nil {
			logger.LogDynamicany(logger.StrWarn, "rename failed",
				logger.StrFile, plan[idx].From, "target", plan[idx].To, "err", err)
			res.Failed++
			continue
		}
		res.Success++
	}
	logger.LogDynamicany(logger.StrInfo, "rename plan executed",
		"success", res.Success, "failed", res.Failed)
	return res
}

// DeleteFiles removes the named files from an entry directory.
func DeleteFiles(dir string, files []string) OpResult {
	var res OpResult
	for _, name := range files {
		if !safeName(name) {
			res.Failed++
			continue
		}
		ok, err := RemoveFile(filepath.Join(dir, name))
		if err != nil || !ok {
			res.Failed++
			continue
		}
		res.Success++
	}
	return res
}

// DeleteEntryDir removes a whole entry directory tree.
func DeleteEntryDir(dir string) error {
	if !CheckFileExist(dir) {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return errors.Wrap(err, "remove entry dir")
	}
	logger.LogDynamicany(logger.StrInfo, "Folder removed", logger.StrFile, dir)
	return nil
}

// MoveFiles relocates files from one entry directory to another. A plain
// rename is tried first; a cross-device move falls back to copy and
// delete. Existing targets are counted as failures.
func MoveFiles(srcDir, dstDir string, files []string) OpResult {
	var res OpResult
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		logger.LogDynamicany(logger.StrError, "create target dir failed", logger.StrFile, dstDir, "err", err)
		res.Failed = len(files)
		return res
	}
	for _, name := range files {
		if !safeName(name) {
			res.Failed++
			continue
		}
		src := filepath.Join(srcDir, name)
		dst := filepath.Join(dstDir, name)
		if !checkFile(src, false, true) || CheckFileExist(dst) {
			res.Failed++
			continue
		}
		if err := os.Rename(src, dst); err != nil {
			if err = moveFileDrive(src, dst); err != nil {
				logger.LogDynamicany(logger.StrWarn, "move failed", logger.StrFile, src, "err", err)
				res.Failed++
				continue
			}
		}
		res.Success++
	}
	return res
}

// moveFileDrive copies a file across file systems and deletes the source
// once the copy is safely on disk.
func moveFileDrive(sourcePath, destPath string) error {
	if err := copyFile(sourcePath, destPath); err != nil {
		return err
	}
	if os.Remove(sourcePath) != nil {
		_ = os.Chmod(sourcePath, 0o777)
		if err := os.Remove(sourcePath); err != nil {
			return errors.Wrap(err, "remove source after copy")
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if !checkFile(src, false, true) {
		return errors.Errorf("non-regular source file %s", src)
	}

	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "open source")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "create target")
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return errors.Wrap(err, "copy data")
	}
	if err = out.Sync(); err != nil {
		out.Close()
		return errors.Wrap(err, "sync target")
	}
	return out.Close()
}

// ZipFiles streams the named files of an entry directory as a zip
// archive. Unknown names are skipped so a stale selection still yields
// the rest of the archive.
func ZipFiles(w io.Writer, dir string, files []string) error {
	zw := zip.NewWriter(w)
	for _, name := range files {
		if !safeName(name) {
			continue
		}
		fpath := filepath.Join(dir, name)
		if !checkFile(fpath, false, true) {
			continue
		}
		if err := addZipEntry(zw, fpath, name); err != nil {
			zw.Close()
			return err
		}
	}
	return zw.Close()
}

func addZipEntry(zw *zip.Writer, fpath, name string) error {
	info, err := os.Stat(fpath)
	if err != nil {
		return errors.Wrap(err, "stat archive file")
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.Wrap(err, "zip header")
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.Wrap(err, "zip create")
	}
	src, err := os.Open(fpath)
	if err != nil {
		return errors.Wrap(err, "open archive file")
	}
	defer src.Close()

	_, err = io.Copy(dst, src)
	return errors.Wrap(err, "zip copy")
}
