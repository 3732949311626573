// Package command translates between the line-oriented console grammar and
// the scheduler's request and snapshot values.
//
// Accepted lines:
//
//	Start_Alarm(<id>): T<type> <seconds> <message>
//	Change_Alarm(<id>): T<type> <seconds> <message>
//	Cancel_Alarm(<id>)
//	View_Alarms
package command
