// Package vbox drives VirtualBox through the VBoxManage command line tool.
//
// Every method runs one VBoxManage invocation and returns its error verbatim
// (wrapped with the operation name). Nothing is cached: state is re-read from
// VirtualBox on every call.
//
// Supported operations:
//   - list vms / list runningvms, parsed into Machine values
//   - startvm with a start type (gui, headless, separate)
//   - controlvm with a power action (acpipowerbutton, pause, savestate, poweroff)
//   - clonevm --register and unregistervm --delete
package vbox
