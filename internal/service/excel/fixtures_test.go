package excel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// vbaStub 以 OLE 复合文档签名开头的占位宏工程
var vbaStub = append([]byte{0xd0, 0xcf, 0x11, 0xe0, 0xa1, 0xb1, 0x1a, 0xe1}, make([]byte, 504)...)

type sheetSpec struct {
	name string
	rows [][]string
}

// newWorkbook 按顺序创建 sheet 并逐行写入
func newWorkbook(t *testing.T, sheets ...sheetSpec) *excelize.File {
	t.Helper()

	wb := excelize.NewFile()
	for i, s := range sheets {
		if i == 0 {
			require.NoError(t, wb.SetSheetName("Sheet1", s.name))
		} else {
			_, err := wb.NewSheet(s.name)
			require.NoError(t, err)
		}
		for r, row := range s.rows {
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, wb.SetSheetRow(s.name, cell, &values))
		}
	}
	return wb
}

func workbookBytes(t *testing.T, wb *excelize.File) []byte {
	t.Helper()

	buf, err := wb.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

// saveMacroWorkbook 附加宏工程后以 .xlsm 落盘再读回字节
func saveMacroWorkbook(t *testing.T, wb *excelize.File) []byte {
	t.Helper()

	require.NoError(t, wb.AddVBAProject(vbaStub))
	path := filepath.Join(t.TempDir(), "template.xlsm")
	require.NoError(t, wb.SaveAs(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
