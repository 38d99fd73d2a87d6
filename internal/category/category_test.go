// SPDX-FileCopyrightText: 2026 Bonial International GmbH
// SPDX-License-Identifier: Apache-2.0

package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer_EmptyIsDefault(t *testing.T) {
	assert.Equal(t, Default, Infer(nil))
	assert.Equal(t, Default, Infer([]string{}))
}

func TestInfer_CaseInsensitive(t *testing.T) {
	assert.Equal(t, "php", Infer([]string{"CPE:/A:PHP:PHP:8.2"}))
}

func TestInfer_PHPWinsOverWindows(t *testing.T) {
	// S4: php listed after windows in the input, but php has priority.
	got := Infer([]string{"cpe:/o:microsoft:windows_server:2022", "cpe:/a:php:php:8.2"})
	assert.Equal(t, "php", got)
}

func TestInfer_Webapps(t *testing.T) {
	assert.Equal(t, "webapps", Infer([]string{"cpe:/a:wordpress:wordpress:6.0"}))
	assert.Equal(t, "webapps", Infer([]string{"cpe:/a:joomla:joomla:4.0"}))
}

func TestInfer_Windows(t *testing.T) {
	assert.Equal(t, "windows", Infer([]string{"cpe:/o:microsoft:windows_10:-"}))
}

func TestInfer_Linux(t *testing.T) {
	assert.Equal(t, "linux", Infer([]string{"cpe:/o:linux:linux_kernel:5.10"}))
}

func TestInfer_Android(t *testing.T) {
	assert.Equal(t, "android", Infer([]string{"cpe:/o:google:android:13.0"}))
}

func TestInfer_IOS(t *testing.T) {
	assert.Equal(t, "ios", Infer([]string{"cpe:/o:apple:iphone_os:17.0"}))
}

func TestInfer_MacOS(t *testing.T) {
	assert.Equal(t, "macos", Infer([]string{"cpe:/o:apple:mac_os_x:14.0"}))
}

func TestInfer_Java(t *testing.T) {
	assert.Equal(t, "java", Infer([]string{"cpe:/a:oracle:java_se:17"}))
	assert.Equal(t, "java", Infer([]string{"cpe:/a:eclipse:openjdk:17"}))
}

func TestInfer_DoS(t *testing.T) {
	assert.Equal(t, "dos", Infer([]string{"cpe:/a:example:denial_of_service_tool:1.0"}))
}

func TestInfer_Asp(t *testing.T) {
	assert.Equal(t, "asp", Infer([]string{"cpe:/a:dotnetfoundation:aspnet:6.0"}))
}

func TestInfer_Hardware(t *testing.T) {
	assert.Equal(t, "hardware", Infer([]string{"cpe:/h:cisco:firmware:1.0"}))
}

func TestInfer_Remote(t *testing.T) {
	assert.Equal(t, "remote", Infer([]string{"cpe:/a:example:remote_tool:1.0"}))
}

func TestInfer_Local(t *testing.T) {
	assert.Equal(t, "local", Infer([]string{"cpe:/a:example:local_tool:1.0"}))
}

func TestInfer_NoMatch(t *testing.T) {
	assert.Equal(t, Default, Infer([]string{"cpe:/a:acme:widget:1.0"}))
}
