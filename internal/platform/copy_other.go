//go:build !linux

package platform

// CopyFile uses the buffered read/write loop on platforms without a
// descriptor-to-descriptor transfer call.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	if params.Length <= 0 {
		return CopyResult{}, nil
	}
	n, err := copyReadWrite(params)
	return CopyResult{BytesWritten: n, Method: ReadWrite}, err
}
